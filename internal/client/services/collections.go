package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
	"github.com/dmitrijs2005/plantcare/internal/client/models"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/collections"
	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/patch"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

// CollectionService manages the user's plants offline-first: every change
// lands in the local store and is pushed by the sync service, except edits
// to already-synced rows made while online, which go to the server at once.
type CollectionService interface {
	Add(ctx context.Context, rec api.CollectionRecord) (*models.LocalCollection, error)
	List(ctx context.Context) ([]*models.LocalCollection, error)
	Get(ctx context.Context, key string) (*models.LocalCollection, error)
	Update(ctx context.Context, key string, p api.CollectionPatch) (*models.LocalCollection, error)
	RecordCare(ctx context.Context, key string, req api.CareRequest) (*models.LocalCollection, error)
	AttachImage(ctx context.Context, key, contentType string, data []byte) (*models.LocalCollection, error)
}

type collectionService struct {
	client client.Client
	repo   collections.Repository
	conn   Connectivity
	clock  timex.Clock
	log    logging.Logger
}

func NewCollectionService(c client.Client, repo collections.Repository, conn Connectivity, clock timex.Clock, logger logging.Logger) CollectionService {
	return &collectionService{client: c, repo: repo, conn: conn, clock: clock, log: logger.With("module", "collections")}
}

func (s *collectionService) Add(ctx context.Context, rec api.CollectionRecord) (*models.LocalCollection, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	rec.ID = ""
	rec.IsSynced = false
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.NextCareDate == nil {
		next := api.NextCareDate(now, rec.CareFrequencyDays)
		rec.NextCareDate = &next
	}

	row := &models.LocalCollection{LocalID: models.NewLocalID(), CollectionRecord: rec}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *collectionService) List(ctx context.Context) ([]*models.LocalCollection, error) {
	return s.repo.List(ctx)
}

func (s *collectionService) Get(ctx context.Context, key string) (*models.LocalCollection, error) {
	return s.repo.GetByKey(ctx, key)
}

// remote reports whether a change to row should go straight to the server.
func (s *collectionService) remote(row *models.LocalCollection) bool {
	return row.ID != "" && row.IsSynced && s.conn.IsOnline()
}

// offlineFallback decides whether a failed remote call can be retried
// locally. It flips the monitor when the server turned out unreachable.
func (s *collectionService) offlineFallback(ctx context.Context, op string, err error) bool {
	if errors.Is(err, client.ErrUnavailable) && ctx.Err() == nil {
		s.conn.MarkOffline()
		s.log.Info(ctx, "server unreachable, keeping change local", "op", op)
		return true
	}
	return false
}

func (s *collectionService) Update(ctx context.Context, key string, p api.CollectionPatch) (*models.LocalCollection, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.remote(row) {
		rec, err := s.client.UpdateCollection(ctx, row.ID, p)
		if err == nil {
			return s.storeServerCopy(ctx, row, *rec)
		}
		if !s.offlineFallback(ctx, "update", err) {
			return nil, err
		}
	}

	if !p.Apply(&row.CollectionRecord) {
		return row, nil
	}
	if p.CareFrequencyDays.IsSet() && !p.NextCareDate.IsSet() {
		if base := careBase(row); base != nil {
			next := api.NextCareDate(*base, row.CareFrequencyDays)
			row.NextCareDate = &next
		}
	}
	return s.markPending(ctx, row)
}

func (s *collectionService) RecordCare(ctx context.Context, key string, req api.CareRequest) (*models.LocalCollection, error) {
	if req.CareDate.IsZero() {
		req.CareDate = s.clock.Now().UTC()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	row, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if s.remote(row) {
		resp, err := s.client.RecordCare(ctx, row.ID, req)
		if err == nil {
			return s.storeServerCopy(ctx, row, resp.Collection)
		}
		if !s.offlineFallback(ctx, "care", err) {
			return nil, err
		}
	}

	// The care history entry itself exists only on the server; offline we
	// keep the schedule current.
	careDate := req.CareDate
	next := api.NextCareDate(careDate, row.CareFrequencyDays)
	row.LastCareDate = &careDate
	row.NextCareDate = &next
	return s.markPending(ctx, row)
}

func (s *collectionService) AttachImage(ctx context.Context, key, contentType string, data []byte) (*models.LocalCollection, error) {
	if !s.conn.IsOnline() {
		return nil, &OfflineError{Key: key}
	}

	presign, err := s.client.PresignImageUpload(ctx)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}
	if err := s.client.UploadImage(ctx, presign.UploadURL, contentType, data); err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	url := presign.ImageURL
	return s.Update(ctx, key, api.CollectionPatch{ImageURL: patch.Set(&url)})
}

func (s *collectionService) storeServerCopy(ctx context.Context, row *models.LocalCollection, rec api.CollectionRecord) (*models.LocalCollection, error) {
	rec.IsSynced = true
	row.CollectionRecord = rec
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *collectionService) markPending(ctx context.Context, row *models.LocalCollection) (*models.LocalCollection, error) {
	now := s.clock.Now().UTC()
	if !now.After(row.UpdatedAt) {
		// updated_at must move so an in-flight push notices the edit
		now = row.UpdatedAt.Add(time.Microsecond)
	}
	row.UpdatedAt = now
	row.IsSynced = false
	if err := s.repo.Save(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func careBase(row *models.LocalCollection) *time.Time {
	if row.LastCareDate != nil {
		return row.LastCareDate
	}
	return row.IdentifiedAt
}
