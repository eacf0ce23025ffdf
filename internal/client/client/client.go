package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

// Client is the remote plantcare API as seen by the client services.
type Client interface {
	Ping(ctx context.Context) error
	Identify(ctx context.Context, req api.IdentifyRequest) (*api.IdentifyResult, error)
	FetchGuide(ctx context.Context, id string) (*api.Guide, error)
	FetchGuidesByPlant(ctx context.Context, plantID string, filter api.GuideFilter, page api.Page) (*api.GuidePage, error)
	PushCollectionChanges(ctx context.Context, records []api.CollectionRecord) (*api.SyncAck, error)
	PullChangesSince(ctx context.Context, since time.Time) ([]api.CollectionRecord, error)
	UpdateCollection(ctx context.Context, id string, p api.CollectionPatch) (*api.CollectionRecord, error)
	RecordCare(ctx context.Context, id string, req api.CareRequest) (*api.CareResponse, error)
	PresignImageUpload(ctx context.Context) (*api.PresignResponse, error)
	UploadImage(ctx context.Context, uploadURL, contentType string, body []byte) error
}
