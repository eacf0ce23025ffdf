package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
	"github.com/dmitrijs2005/plantcare/internal/client/models"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/collections"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/plantcare/internal/logging"
)

// SyncReport summarises one reconciliation cycle.
type SyncReport struct {
	Pushed    int       `json:"pushed"`
	Failed    int       `json:"failed"`
	Pulled    int       `json:"pulled"`
	Conflicts int       `json:"conflicts"`
	Cursor    time.Time `json:"cursor"`
	// Skipped is set when another cycle was already running.
	Skipped bool `json:"skipped"`
}

type SyncService interface {
	Sync(ctx context.Context) (*SyncReport, error)
}

type syncService struct {
	client client.Client
	repo   collections.Repository
	meta   metadata.Repository
	log    logging.Logger

	mu sync.Mutex
}

func NewSyncService(c client.Client, repo collections.Repository, meta metadata.Repository, logger logging.Logger) SyncService {
	return &syncService{client: c, repo: repo, meta: meta, log: logger.With("module", "sync")}
}

// Sync pushes pending local rows (the server's copy wins), then pulls
// server changes since the stored cursor. The cursor advances only when
// both phases complete; a transport failure leaves pending rows and the
// cursor untouched. Overlapping calls return a skipped report.
func (s *syncService) Sync(ctx context.Context) (*SyncReport, error) {
	if !s.mu.TryLock() {
		return &SyncReport{Skipped: true}, nil
	}
	defer s.mu.Unlock()

	cursor, err := s.meta.GetTime(ctx, metadata.SyncCursorKey)
	if err != nil {
		return nil, fmt.Errorf("read sync cursor: %w", err)
	}
	report := &SyncReport{Cursor: cursor}

	if err := s.push(ctx, report); err != nil {
		return report, err
	}

	latest, err := s.pull(ctx, cursor, report)
	if err != nil {
		return report, err
	}

	if latest.After(cursor) {
		if err := s.meta.SetTime(ctx, metadata.SyncCursorKey, latest); err != nil {
			return report, fmt.Errorf("save sync cursor: %w", err)
		}
		report.Cursor = latest
	}

	s.log.Info(ctx, "sync finished",
		"pushed", report.Pushed, "failed", report.Failed, "pulled", report.Pulled,
		"conflicts", report.Conflicts, "cursor", report.Cursor)
	return report, nil
}

func (s *syncService) push(ctx context.Context, report *SyncReport) error {
	pending, err := s.repo.GetPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	batch := make([]api.CollectionRecord, 0, len(pending))
	byRef := make(map[string]*models.LocalCollection, len(pending))
	for _, row := range pending {
		rec := row.CollectionRecord
		rec.ID = row.PushID()
		rec.ClientRef = row.LocalID
		batch = append(batch, rec)
		byRef[row.LocalID] = row
	}

	ack, err := s.client.PushCollectionChanges(ctx, batch)
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}

	acked := make(map[string]struct{}, len(ack.ServerState))
	for _, srv := range ack.ServerState {
		row, ok := byRef[srv.ClientRef]
		if !ok {
			s.log.Warn(ctx, "ack for unknown client ref", "client_ref", srv.ClientRef, "id", srv.ID)
			continue
		}
		acked[srv.ClientRef] = struct{}{}

		if row.ID != "" && !sameContent(row.CollectionRecord, srv) {
			report.Conflicts++
			s.log.Info(ctx, "sync conflict, server copy kept",
				"id", srv.ID, "local_updated_at", row.UpdatedAt, "server_updated_at", srv.UpdatedAt)
		}

		replaced, err := s.repo.ReplaceWithServer(ctx, row.LocalID, srv, row.UpdatedAt)
		if err != nil {
			return err
		}
		if replaced {
			report.Pushed++
		}
	}

	for _, f := range ack.Failures {
		s.log.Warn(ctx, "push rejected", "client_ref", f.ClientRef, "error", f.Error)
	}
	report.Failed = len(pending) - len(acked)
	return nil
}

func (s *syncService) pull(ctx context.Context, cursor time.Time, report *SyncReport) (time.Time, error) {
	changes, err := s.client.PullChangesSince(ctx, cursor)
	if err != nil {
		return cursor, fmt.Errorf("pull: %w", err)
	}

	latest := cursor
	for _, rec := range changes {
		applied, err := s.repo.UpsertRemote(ctx, rec)
		if err != nil {
			return cursor, err
		}
		if applied {
			report.Pulled++
		}
		if rec.UpdatedAt.After(latest) {
			latest = rec.UpdatedAt
		}
	}
	return latest, nil
}

// sameContent compares the user-editable attributes.
func sameContent(a, b api.CollectionRecord) bool {
	return a.PlantID == b.PlantID &&
		a.CommonName == b.CommonName &&
		eqPtr(a.ScientificName, b.ScientificName) &&
		eqPtr(a.ImageURL, b.ImageURL) &&
		eqTime(a.IdentifiedAt, b.IdentifiedAt) &&
		eqTime(a.LastCareDate, b.LastCareDate) &&
		eqTime(a.NextCareDate, b.NextCareDate) &&
		a.CareFrequencyDays == b.CareFrequencyDays &&
		a.HealthStatus == b.HealthStatus &&
		eqPtr(a.Notes, b.Notes)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
