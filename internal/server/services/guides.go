package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/logging"
	"github.com/dmitrijs2005/plantcare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/plantcare/internal/timex"
)

const (
	DefaultGuideLimit = 10
	MaxGuideLimit     = 100
)

// GuideService serves treatment guides read-through the result cache.
// Writes invalidate every cached entry that could include the guide.
type GuideService interface {
	Get(ctx context.Context, id string) (*api.Guide, error)
	ListByPlant(ctx context.Context, plantID string, filter api.GuideFilter, page api.Page) (*api.GuidePage, error)
	Create(ctx context.Context, g api.Guide) (*api.Guide, error)
	Update(ctx context.Context, id string, g api.Guide) (*api.Guide, error)
	Delete(ctx context.Context, id string) error
}

type guideService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	cache *cache.ResultCache
	clock timex.Clock
	ttl   time.Duration
	log   logging.Logger
}

func NewGuideService(db *sql.DB, repos repomanager.RepositoryManager, c *cache.ResultCache, clock timex.Clock, ttl time.Duration, logger logging.Logger) GuideService {
	return &guideService{db: db, repos: repos, cache: c, clock: clock, ttl: ttl, log: logger.With("module", "guides")}
}

func (s *guideService) Get(ctx context.Context, id string) (*api.Guide, error) {
	key := api.GuideKey(id)
	if g, e, ok := cache.GetJSON[*api.Guide](ctx, s.cache, key); ok && e.Fresh(s.cache.Now()) {
		return g, nil
	}
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	g, err := s.repos.Guides(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	s.store(ctx, key, g)
	return g, nil
}

func (s *guideService) ListByPlant(ctx context.Context, plantID string, filter api.GuideFilter, page api.Page) (*api.GuidePage, error) {
	page = page.Normalize(DefaultGuideLimit, MaxGuideLimit)
	key := api.GuidesByPlantKey(plantID, filter, page)
	if p, e, ok := cache.GetJSON[*api.GuidePage](ctx, s.cache, key); ok && e.Fresh(s.cache.Now()) {
		return p, nil
	}

	disease := strings.TrimSpace(filter.DiseaseName)
	guides, total, err := s.repos.Guides(s.db).ListByPlant(ctx, plantID, disease, page.Limit, page.Offset)
	if err != nil {
		return nil, storageErr(err)
	}

	out := &api.GuidePage{PlantID: plantID, TotalResults: total, Limit: page.Limit, Offset: page.Offset, Guides: guides}
	if disease != "" {
		out.DiseaseFilter = &disease
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *guideService) Create(ctx context.Context, g api.Guide) (*api.Guide, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	g.ID = uuid.NewString()
	g.CreatedAt = now
	g.UpdatedAt = now

	if err := s.repos.Guides(s.db).Create(ctx, &g); err != nil {
		return nil, storageErr(err)
	}
	s.invalidate(ctx, g.ID, g.PlantID)
	s.log.Info(ctx, "guide created", "id", g.ID, "plant_id", g.PlantID)
	return &g, nil
}

func (s *guideService) Update(ctx context.Context, id string, g api.Guide) (*api.Guide, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	repo := s.repos.Guides(s.db)
	prev, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}

	g.ID = id
	g.CreatedAt = prev.CreatedAt
	g.UpdatedAt = s.now()
	if err := repo.Update(ctx, &g); err != nil {
		return nil, storageErr(err)
	}

	s.invalidate(ctx, id, prev.PlantID, g.PlantID)
	return &g, nil
}

func (s *guideService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}
	repo := s.repos.Guides(s.db)
	prev, err := repo.GetByID(ctx, id)
	if err != nil {
		return storageErr(err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		return storageErr(err)
	}
	s.invalidate(ctx, id, prev.PlantID)
	s.log.Info(ctx, "guide deleted", "id", id)
	return nil
}

func (s *guideService) store(ctx context.Context, key string, v any) {
	if err := cache.PutJSON(ctx, s.cache, key, v, s.ttl); err != nil {
		s.log.Warn(ctx, "cache write failed", "key", key, "error", err)
	}
}

func (s *guideService) invalidate(ctx context.Context, id string, plantIDs ...string) {
	s.cache.Invalidate(ctx, api.GuideKey(id))
	seen := make(map[string]bool, len(plantIDs))
	for _, p := range plantIDs {
		if p != "" && !seen[p] {
			seen[p] = true
			s.cache.Invalidate(ctx, api.GuidesByPlantPattern(p))
		}
	}
}

func (s *guideService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}
