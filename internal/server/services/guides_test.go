package services

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/cache"
	"github.com/dmitrijs2005/plantcare/internal/common"
	"github.com/dmitrijs2005/plantcare/internal/testutil"
)

const guideID = "6f1c2f9e-3c55-4c1e-9a7e-2f6e4b0b7d11"

func newGuide(plantID, title string) api.Guide {
	return api.Guide{
		PlantID:   plantID,
		Severity:  api.SeverityMedium,
		GuideType: api.GuideTypeDiseaseTreatment,
		Steps:     []api.GuideStep{{StepNumber: 1, Title: title}},
	}
}

type guideFixture struct {
	repos *memRepos
	clock *testutil.StubClock
	cache *cache.ResultCache
	svc   GuideService
}

func newGuideFixture(t *testing.T) *guideFixture {
	t.Helper()
	db, _ := newMockDB(t)
	repos := newMemRepos()
	clock := testutil.FixedClock()
	c := cache.New(nil, clock, testutil.DiscardLogger(), nil)
	return &guideFixture{
		repos: repos,
		clock: clock,
		cache: c,
		svc:   NewGuideService(db, repos, c, clock, api.GuideTTL, testutil.DiscardLogger()),
	}
}

func TestGuideService_GetReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	f := newGuideFixture(t)
	g := newGuide("p1", "Cut leaves")
	g.ID = guideID
	f.repos.guides[guideID] = g

	got, err := f.svc.Get(ctx, guideID)
	require.NoError(t, err)
	assert.Equal(t, "Cut leaves", got.Steps[0].Title)

	_, err = f.svc.Get(ctx, guideID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.repos.guideReads)

	f.clock.Advance(api.GuideTTL + time.Second)
	_, err = f.svc.Get(ctx, guideID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.repos.guideReads, "expired entry goes back to storage")
}

func TestGuideService_GetErrors(t *testing.T) {
	ctx := context.Background()
	f := newGuideFixture(t)

	_, err := f.svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Zero(t, f.repos.guideReads)

	_, err = f.svc.Get(ctx, guideID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	f.repos.err = driver.ErrBadConn
	_, err = f.svc.Get(ctx, guideID)
	assert.ErrorIs(t, err, common.ErrorUnavailable)
}

func TestGuideService_ListByPlant(t *testing.T) {
	ctx := context.Background()
	f := newGuideFixture(t)

	rot := "Root rot"
	for i, title := range []string{"a", "b", "c"} {
		g := newGuide("p1", title)
		g.ID = "id-" + title
		g.CreatedAt = f.clock.Now().Add(time.Duration(i) * time.Minute)
		if title == "b" {
			g.DiseaseName = &rot
		}
		f.repos.guides[g.ID] = g
	}

	page, err := f.svc.ListByPlant(ctx, "p1", api.GuideFilter{}, api.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalResults)
	require.Len(t, page.Guides, 2)
	assert.Equal(t, "c", page.Guides[0].Steps[0].Title)
	assert.Nil(t, page.DiseaseFilter)

	page, err = f.svc.ListByPlant(ctx, "p1", api.GuideFilter{DiseaseName: " rot "}, api.Page{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxGuideLimit, page.Limit)
	require.Len(t, page.Guides, 1)
	require.NotNil(t, page.DiseaseFilter)
	assert.Equal(t, "rot", *page.DiseaseFilter)

	reads := f.repos.guideReads
	_, err = f.svc.ListByPlant(ctx, "p1", api.GuideFilter{}, api.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, reads, f.repos.guideReads)
}

func TestGuideService_WritesInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newGuideFixture(t)

	_, err := f.svc.ListByPlant(ctx, "p1", api.GuideFilter{}, api.Page{})
	require.NoError(t, err)
	listKey := api.GuidesByPlantKey("p1", api.GuideFilter{}, api.Page{Limit: DefaultGuideLimit})
	_, ok := f.cache.Get(ctx, listKey)
	require.True(t, ok)

	created, err := f.svc.Create(ctx, newGuide("p1", "Water less"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, f.clock.Now(), created.CreatedAt)
	_, ok = f.cache.Get(ctx, listKey)
	assert.False(t, ok, "create drops cached listings of the plant")

	_, err = f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	_, err = f.svc.ListByPlant(ctx, "p2", api.GuideFilter{}, api.Page{})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	moved := newGuide("p2", "Water much less")
	updated, err := f.svc.Update(ctx, created.ID, moved)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

	_, ok = f.cache.Get(ctx, api.GuideKey(created.ID))
	assert.False(t, ok)
	_, ok = f.cache.Get(ctx, api.GuidesByPlantKey("p2", api.GuideFilter{}, api.Page{Limit: DefaultGuideLimit}))
	assert.False(t, ok, "the new plant's listings are dropped too")

	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water much less", got.Steps[0].Title)

	require.NoError(t, f.svc.Delete(ctx, created.ID))
	_, err = f.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.ID), common.ErrorNotFound)
}

func TestGuideService_CreateValidates(t *testing.T) {
	f := newGuideFixture(t)

	g := newGuide("p1", "x")
	g.Severity = "catastrophic"
	_, err := f.svc.Create(context.Background(), g)

	var pe *api.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "severity", pe.Path)
	assert.Empty(t, f.repos.guides)
}
