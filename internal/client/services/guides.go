package services

import (
	"context"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
)

const (
	defaultGuideLimit = 10
	maxGuideLimit     = 100
)

type GuideService interface {
	Get(ctx context.Context, id string) (*Result[api.Guide], error)
	ListByPlant(ctx context.Context, plantID string, filter api.GuideFilter, page api.Page) (*Result[api.GuidePage], error)
}

type guideService struct {
	client client.Client
	orch   *Orchestrator
}

func NewGuideService(c client.Client, orch *Orchestrator) GuideService {
	return &guideService{client: c, orch: orch}
}

func (s *guideService) Get(ctx context.Context, id string) (*Result[api.Guide], error) {
	return Resolve(ctx, s.orch, api.GuideKey(id), api.GuideTTL, func(ctx context.Context) (api.Guide, error) {
		g, err := s.client.FetchGuide(ctx, id)
		if err != nil {
			return api.Guide{}, err
		}
		return *g, nil
	})
}

func (s *guideService) ListByPlant(ctx context.Context, plantID string, filter api.GuideFilter, page api.Page) (*Result[api.GuidePage], error) {
	page = page.Normalize(defaultGuideLimit, maxGuideLimit)
	key := api.GuidesByPlantKey(plantID, filter, page)

	return Resolve(ctx, s.orch, key, api.GuideTTL, func(ctx context.Context) (api.GuidePage, error) {
		p, err := s.client.FetchGuidesByPlant(ctx, plantID, filter, page)
		if err != nil {
			return api.GuidePage{}, err
		}
		return *p, nil
	})
}
