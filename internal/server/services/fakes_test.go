package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/dbx"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/carehistory"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/collections"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/guides"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/repomanager"
)

// memRepos is an in-memory RepositoryManager. The DBTX argument is ignored;
// transactions are still opened on the sqlmock database so commit and
// rollback can be asserted.
type memRepos struct {
	repomanager.RepositoryManager

	mu          sync.Mutex
	guides      map[string]api.Guide
	collections map[string]api.CollectionRecord
	history     []api.CareHistory
	err         error
	guideReads  int
}

func newMemRepos() *memRepos {
	return &memRepos{guides: map[string]api.Guide{}, collections: map[string]api.CollectionRecord{}}
}

func (m *memRepos) Guides(dbx.DBTX) guides.Repository           { return &memGuides{m} }
func (m *memRepos) Collections(dbx.DBTX) collections.Repository { return &memCollections{m} }
func (m *memRepos) CareHistory(dbx.DBTX) carehistory.Repository { return &memHistory{m} }

type memGuides struct{ m *memRepos }

func (r *memGuides) GetByID(_ context.Context, id string) (*api.Guide, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.guideReads++
	if r.m.err != nil {
		return nil, r.m.err
	}
	g, ok := r.m.guides[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &g, nil
}

func (r *memGuides) ListByPlant(_ context.Context, plantID, disease string, limit, offset int) ([]*api.Guide, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.guideReads++
	if r.m.err != nil {
		return nil, 0, r.m.err
	}
	var all []*api.Guide
	for _, g := range r.m.guides {
		if g.PlantID != plantID {
			continue
		}
		if disease != "" && (g.DiseaseName == nil || !strings.Contains(strings.ToLower(*g.DiseaseName), strings.ToLower(disease))) {
			continue
		}
		g := g
		all = append(all, &g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (r *memGuides) Create(_ context.Context, g *api.Guide) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.guides[g.ID] = *g
	return nil
}

func (r *memGuides) Update(_ context.Context, g *api.Guide) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.guides[g.ID]; !ok {
		return common.ErrorNotFound
	}
	r.m.guides[g.ID] = *g
	return nil
}

func (r *memGuides) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.guides[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.guides, id)
	return nil
}

type memCollections struct{ m *memRepos }

func (r *memCollections) Create(_ context.Context, c *api.CollectionRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.err != nil {
		return r.m.err
	}
	r.m.collections[c.ID] = *c
	return nil
}

func (r *memCollections) GetByID(_ context.Context, id string) (*api.CollectionRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.err != nil {
		return nil, r.m.err
	}
	c, ok := r.m.collections[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *memCollections) GetForUpdate(ctx context.Context, id string) (*api.CollectionRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *memCollections) List(_ context.Context, userID, health string, limit, offset int) ([]api.CollectionRecord, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []api.CollectionRecord
	for _, c := range r.m.collections {
		if c.UserID == userID && (health == "" || c.HealthStatus == health) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CommonName < all[j].CommonName })
	total := len(all)
	if offset > total {
		offset = total
	}
	return all[offset:min(offset+limit, total)], total, nil
}

func (r *memCollections) Update(_ context.Context, c *api.CollectionRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.collections[c.ID]; !ok {
		return common.ErrorNotFound
	}
	r.m.collections[c.ID] = *c
	return nil
}

func (r *memCollections) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.collections[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.m.collections, id)
	return nil
}

func (r *memCollections) ChangesSince(_ context.Context, userID string, since time.Time) ([]api.CollectionRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]api.CollectionRecord, 0)
	for _, c := range r.m.collections {
		if c.UserID == userID && c.UpdatedAt.After(since) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

type memHistory struct{ m *memRepos }

func (r *memHistory) Create(_ context.Context, h *api.CareHistory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.history = append(r.m.history, *h)
	return nil
}

func (r *memHistory) ListByCollection(_ context.Context, collectionID string, limit int) ([]api.CareHistory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]api.CareHistory, 0)
	for i := len(r.m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.m.history[i].CollectionID == collectionID {
			out = append(out, r.m.history[i])
		}
	}
	return out, nil
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// expectCommits queues n begin/commit pairs.
func expectCommits(mock sqlmock.Sqlmock, n int) {
	for range n {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}
