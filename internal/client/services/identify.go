package services

import (
	"context"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
)

type IdentifyService interface {
	Identify(ctx context.Context, req api.IdentifyRequest) (*Result[api.IdentifyResult], error)
}

type identifyService struct {
	client client.Client
	orch   *Orchestrator
}

func NewIdentifyService(c client.Client, orch *Orchestrator) IdentifyService {
	return &identifyService{client: c, orch: orch}
}

// Identify caches by content fingerprint, so the same photo is sent to the
// server at most once per hour.
func (s *identifyService) Identify(ctx context.Context, req api.IdentifyRequest) (*Result[api.IdentifyResult], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := api.IdentifyKey(api.IdentifyFingerprint(req))

	return Resolve(ctx, s.orch, key, api.IdentifyTTL, func(ctx context.Context) (api.IdentifyResult, error) {
		r, err := s.client.Identify(ctx, req)
		if err != nil {
			return api.IdentifyResult{}, err
		}
		return *r, nil
	})
}
