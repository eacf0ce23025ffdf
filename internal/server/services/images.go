package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/plantcare/internal/api"
	sc "github.com/dmitrijs2005/plantcare/internal/server/config"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// PresignExpiry is how long an upload URL stays valid.
const PresignExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// ImageService hands out presigned upload URLs for collection photos.
type ImageService interface {
	PresignUpload(ctx context.Context, userID string) (*api.PresignResponse, error)
}

type imageService struct {
	config *sc.Config
	clock  timex.Clock
}

func NewImageService(config *sc.Config, clock timex.Clock) ImageService {
	return &imageService{config: config, clock: clock}
}

// storageKey is users/{uid}/{yyyy}/{mm}/{dd}/{uuid}.
func (s *imageService) storageKey(userID string) string {
	d := s.clock.Now().UTC()
	return fmt.Sprintf("users/%s/%04d/%02d/%02d/%s", url.PathEscape(userID), d.Year(), int(d.Month()), d.Day(), uuid.New())
}

func (s *imageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return newS3PresignClient(client), nil
}

func (s *imageService) PresignUpload(ctx context.Context, userID string) (*api.PresignResponse, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	bucket := s.config.S3Bucket
	key := s.storageKey(userID)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &api.PresignResponse{Key: key, UploadURL: req.URL, ImageURL: s.publicURL(key)}, nil
}

// publicURL is the path-style object URL under the configured endpoint.
func (s *imageService) publicURL(key string) string {
	return strings.TrimRight(s.config.S3BaseEndpoint, "/") + "/" + s.config.S3Bucket + "/" + key
}
