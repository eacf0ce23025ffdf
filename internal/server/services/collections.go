package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

const (
	DefaultCollectionLimit = 20
	MaxCollectionLimit     = 100
	DefaultHistoryLimit    = 50
)

// CollectionService manages per-user plant collections. Every method takes
// the authenticated user id; rows of other users answer
// common.ErrorForbidden.
type CollectionService interface {
	Create(ctx context.Context, userID string, rec api.CollectionRecord) (*api.CollectionRecord, error)
	Get(ctx context.Context, userID, id string) (*api.CollectionRecord, error)
	List(ctx context.Context, userID, healthStatus string, page api.Page) (*api.CollectionPage, error)
	Update(ctx context.Context, userID, id string, p api.CollectionPatch) (*api.CollectionRecord, error)
	Delete(ctx context.Context, userID, id string) error
	// Sync stores offline-created records. A record whose id already exists
	// is not modified: the stored copy is returned instead.
	Sync(ctx context.Context, userID string, items []api.CollectionRecord) *api.SyncAck
	ChangesSince(ctx context.Context, userID string, since time.Time) ([]api.CollectionRecord, error)
	RecordCare(ctx context.Context, userID, id string, req api.CareRequest) (*api.CareResponse, error)
	CareHistory(ctx context.Context, userID, id string, limit int) ([]api.CareHistory, error)
}

type collectionService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	clock timex.Clock
	log   logging.Logger
}

func NewCollectionService(db *sql.DB, repos repomanager.RepositoryManager, clock timex.Clock, logger logging.Logger) CollectionService {
	return &collectionService{db: db, repos: repos, clock: clock, log: logger.With("module", "collections")}
}

// now is truncated to what timestamptz stores, so responses and later
// reads agree.
func (s *collectionService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

func (s *collectionService) Create(ctx context.Context, userID string, rec api.CollectionRecord) (*api.CollectionRecord, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.ID = uuid.NewString()
	s.prepareInsert(userID, &rec)

	if err := s.repos.Collections(s.db).Create(ctx, &rec); err != nil {
		return nil, storageErr(err)
	}
	s.log.Info(ctx, "collection created", "id", rec.ID, "user_id", userID)
	return &rec, nil
}

func (s *collectionService) prepareInsert(userID string, rec *api.CollectionRecord) {
	now := s.now()
	rec.UserID = userID
	rec.ClientRef = ""
	rec.IsSynced = true
	if rec.CreatedAt.IsZero() || rec.CreatedAt.After(now) {
		rec.CreatedAt = now
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Microsecond)
	// updated_at is always server time: pull cursors compare against it.
	rec.UpdatedAt = now
}

func owned(rec *api.CollectionRecord, userID string) error {
	if rec.UserID != userID {
		return common.ErrorForbidden
	}
	return nil
}

func (s *collectionService) Get(ctx context.Context, userID, id string) (*api.CollectionRecord, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	rec, err := s.repos.Collections(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if err := owned(rec, userID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *collectionService) List(ctx context.Context, userID, healthStatus string, page api.Page) (*api.CollectionPage, error) {
	if healthStatus != "" && healthStatus != api.HealthHealthy && healthStatus != api.HealthNeedsAttention && healthStatus != api.HealthSick {
		return nil, api.FieldError("health_status", "must be healthy, needs_attention or sick")
	}
	page = page.Normalize(DefaultCollectionLimit, MaxCollectionLimit)

	items, total, err := s.repos.Collections(s.db).List(ctx, userID, healthStatus, page.Limit, page.Offset)
	if err != nil {
		return nil, storageErr(err)
	}
	return &api.CollectionPage{
		Collections: items,
		Total:       total,
		Limit:       page.Limit,
		Offset:      page.Offset,
		HasMore:     page.Offset+len(items) < total,
	}, nil
}

func (s *collectionService) Update(ctx context.Context, userID, id string, p api.CollectionPatch) (*api.CollectionRecord, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var out *api.CollectionRecord
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Collections(tx)
		rec, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := owned(rec, userID); err != nil {
			return err
		}

		out = rec
		if !p.Apply(rec) {
			return nil
		}
		if p.CareFrequencyDays.IsSet() && !p.NextCareDate.IsSet() {
			if base := careBase(rec); base != nil {
				next := api.NextCareDate(*base, rec.CareFrequencyDays)
				rec.NextCareDate = &next
			}
		}
		rec.IsSynced = true
		rec.UpdatedAt = s.now()
		return repo.Update(ctx, rec)
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func careBase(rec *api.CollectionRecord) *time.Time {
	if rec.LastCareDate != nil {
		return rec.LastCareDate
	}
	return rec.IdentifiedAt
}

func (s *collectionService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repos.Collections(s.db).Delete(ctx, id); err != nil {
		return storageErr(err)
	}
	s.log.Info(ctx, "collection deleted", "id", id, "user_id", userID)
	return nil
}

func (s *collectionService) Sync(ctx context.Context, userID string, items []api.CollectionRecord) *api.SyncAck {
	ack := &api.SyncAck{ServerState: make([]api.CollectionRecord, 0, len(items))}

	for _, item := range items {
		ref := item.ClientRef
		rec, err := s.syncOne(ctx, userID, item)
		if err != nil {
			ack.FailedCount++
			ack.Failures = append(ack.Failures, api.SyncFailure{ClientRef: ref, ID: item.ID, Error: syncFailureMessage(err)})
			s.log.Warn(ctx, "sync item failed", "user_id", userID, "client_ref", ref, "id", item.ID, "error", err)
			continue
		}
		rec.ClientRef = ref
		ack.SyncedCount++
		ack.ServerState = append(ack.ServerState, *rec)
	}

	s.log.Info(ctx, "sync processed", "user_id", userID, "synced", ack.SyncedCount, "failed", ack.FailedCount)
	return ack
}

func (s *collectionService) syncOne(ctx context.Context, userID string, item api.CollectionRecord) (*api.CollectionRecord, error) {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return nil, err
	}

	id := item.ID
	if !validID(id) {
		id = uuid.NewString()
	}

	var out *api.CollectionRecord
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Collections(tx)

		existing, err := repo.GetForUpdate(ctx, id)
		switch {
		case err == nil:
			if err := owned(existing, userID); err != nil {
				return err
			}
			out = existing
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		item.ID = id
		s.prepareInsert(userID, &item)
		if err := repo.Create(ctx, &item); err != nil {
			return err
		}
		out = &item
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func syncFailureMessage(err error) string {
	var pe *api.ParseError
	switch {
	case errors.As(err, &pe):
		return pe.Error()
	case errors.Is(err, common.ErrorForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrorUnavailable):
		return "storage unavailable"
	}
	return "internal error"
}

func (s *collectionService) ChangesSince(ctx context.Context, userID string, since time.Time) ([]api.CollectionRecord, error) {
	out, err := s.repos.Collections(s.db).ChangesSince(ctx, userID, since.UTC())
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

func (s *collectionService) RecordCare(ctx context.Context, userID, id string, req api.CareRequest) (*api.CareResponse, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	now := s.now()
	if req.CareDate.IsZero() {
		req.CareDate = now
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp := &api.CareResponse{}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		colls := s.repos.Collections(tx)
		rec, err := colls.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := owned(rec, userID); err != nil {
			return err
		}

		careDate := req.CareDate.UTC().Truncate(time.Microsecond)
		h := api.CareHistory{
			ID:           uuid.NewString(),
			CollectionID: id,
			CareDate:     careDate,
			CareType:     req.CareType,
			Notes:        req.Notes,
			CreatedAt:    now,
		}
		if err := s.repos.CareHistory(tx).Create(ctx, &h); err != nil {
			return err
		}

		next := api.NextCareDate(careDate, rec.CareFrequencyDays)
		rec.LastCareDate = &careDate
		rec.NextCareDate = &next
		rec.IsSynced = true
		rec.UpdatedAt = now
		if err := colls.Update(ctx, rec); err != nil {
			return err
		}

		resp.CareHistory = h
		resp.Collection = *rec
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	s.log.Info(ctx, "care recorded", "collection_id", id, "care_type", req.CareType)
	return resp, nil
}

func (s *collectionService) CareHistory(ctx context.Context, userID, id string, limit int) ([]api.CareHistory, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxCollectionLimit {
		limit = DefaultHistoryLimit
	}
	out, err := s.repos.CareHistory(s.db).ListByCollection(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("care history of %s: %w", id, storageErr(err))
	}
	return out, nil
}
