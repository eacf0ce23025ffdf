package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/plantcare/internal/api"
	"github.com/dmitrijs2005/plantcare/internal/client/client"
	"github.com/dmitrijs2005/plantcare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/plantcare/internal/patch"
	"github.com/dmitrijs2005/plantcare/internal/testutil"
)

// fakeServer keeps collections in memory and follows the server's sync
// rules: an id it already knows is answered with its own copy.
type fakeServer struct {
	client.Client

	mu       sync.Mutex
	records  map[string]api.CollectionRecord
	clock    time.Time
	reject   map[string]string
	pushes   int
	down     bool
	pullErr  error
	dropAck  bool
	blockCh  chan struct{}
	enterCh  chan struct{}
	uploaded []byte
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		records: map[string]api.CollectionRecord{},
		reject:  map[string]string{},
		clock:   time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

var errUnreachable = &client.RemoteError{Kind: client.KindUnavailable, Err: errors.New("connection refused")}

func (s *fakeServer) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeServer) PushCollectionChanges(ctx context.Context, records []api.CollectionRecord) (*api.SyncAck, error) {
	if s.enterCh != nil {
		s.enterCh <- struct{}{}
		<-s.blockCh
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errUnreachable
	}
	s.pushes++

	ack := &api.SyncAck{}
	for _, rec := range records {
		if reason, ok := s.reject[rec.ClientRef]; ok {
			ack.FailedCount++
			ack.Failures = append(ack.Failures, api.SyncFailure{ClientRef: rec.ClientRef, ID: rec.ID, Error: reason})
			continue
		}
		existing, ok := s.records[rec.ID]
		if !ok {
			now := s.tick()
			rec.UserID = "u1"
			rec.IsSynced = true
			rec.CreatedAt = now
			rec.UpdatedAt = now
			ref := rec.ClientRef
			rec.ClientRef = ""
			s.records[rec.ID] = rec
			existing = rec
			existing.ClientRef = ref
		} else {
			existing.ClientRef = rec.ClientRef
		}
		ack.SyncedCount++
		ack.ServerState = append(ack.ServerState, existing)
	}

	if s.dropAck {
		s.dropAck = false
		return nil, &client.RemoteError{Kind: client.KindTimeout, Err: errors.New("response lost")}
	}
	return ack, nil
}

func (s *fakeServer) PullChangesSince(ctx context.Context, since time.Time) ([]api.CollectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errUnreachable
	}
	if s.pullErr != nil {
		return nil, s.pullErr
	}

	var out []api.CollectionRecord
	for _, rec := range s.records {
		if rec.UpdatedAt.After(since) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *fakeServer) UpdateCollection(ctx context.Context, id string, p api.CollectionPatch) (*api.CollectionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errUnreachable
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, &client.RemoteError{Kind: client.KindNotFound, Status: 404}
	}
	p.Apply(&rec)
	rec.UpdatedAt = s.tick()
	s.records[id] = rec
	return &rec, nil
}

func (s *fakeServer) RecordCare(ctx context.Context, id string, req api.CareRequest) (*api.CareResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, errUnreachable
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, &client.RemoteError{Kind: client.KindNotFound, Status: 404}
	}
	next := api.NextCareDate(req.CareDate, rec.CareFrequencyDays)
	rec.LastCareDate = &req.CareDate
	rec.NextCareDate = &next
	rec.UpdatedAt = s.tick()
	s.records[id] = rec
	return &api.CareResponse{
		CareHistory: api.CareHistory{ID: "h1", CollectionID: id, CareDate: req.CareDate, CareType: req.CareType},
		Collection:  rec,
	}, nil
}

func (s *fakeServer) PresignImageUpload(ctx context.Context) (*api.PresignResponse, error) {
	return &api.PresignResponse{
		Key:       "plants/u1/img.jpg",
		UploadURL: "http://s3.local/upload?sig=x",
		ImageURL:  "http://cdn.local/plants/u1/img.jpg",
	}, nil
}

func (s *fakeServer) UploadImage(ctx context.Context, uploadURL, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = body
	return nil
}

func (s *fakeServer) update(id string, fn func(*api.CollectionRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[id]
	fn(&rec)
	rec.UpdatedAt = s.tick()
	s.records[id] = rec
}

type syncFixture struct {
	server *fakeServer
	repos  *client.Repositories
	conn   *fakeConn
	clock  *testutil.StubClock
	colls  CollectionService
	sync   SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos := client.NewRepositories(db)
	server := newFakeServer()
	conn := &fakeConn{}
	clock := testutil.FixedClock()
	log := testutil.DiscardLogger()

	return &syncFixture{
		server: server,
		repos:  repos,
		conn:   conn,
		clock:  clock,
		colls:  NewCollectionService(server, repos.Collections, conn, clock, log),
		sync:   NewSyncService(server, repos.Collections, repos.Metadata, log),
	}
}

func (f *syncFixture) cursor(t *testing.T) time.Time {
	t.Helper()
	c, err := f.repos.Metadata.GetTime(context.Background(), metadata.SyncCursorKey)
	require.NoError(t, err)
	return c
}

func newPlant(name string) api.CollectionRecord {
	return api.CollectionRecord{PlantID: "p1", CommonName: name}
}

func TestSync_PushesPendingAndAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	row, err := f.colls.Add(ctx, newPlant("Monstera"))
	require.NoError(t, err)

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Conflicts)

	got, err := f.colls.Get(ctx, row.LocalID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
	assert.Equal(t, row.PushID(), got.ID)
	assert.Equal(t, "u1", got.UserID)

	srv := f.server.records[got.ID]
	assert.Equal(t, srv.UpdatedAt, f.cursor(t))
	assert.Equal(t, f.cursor(t), report.Cursor)

	pending, err := f.repos.Collections.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSync_NothingPendingSkipsPush(t *testing.T) {
	f := newSyncFixture(t)

	report, err := f.sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, f.server.pushes)
	assert.True(t, report.Cursor.IsZero())
}

func TestSync_RepeatIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	_, err := f.colls.Add(ctx, newPlant("Fern"))
	require.NoError(t, err)

	_, err = f.sync.Sync(ctx)
	require.NoError(t, err)
	cursor := f.cursor(t)

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Pushed)
	assert.Zero(t, report.Pulled)
	assert.Equal(t, 1, f.server.pushes)
	assert.Equal(t, cursor, f.cursor(t))

	rows, err := f.colls.List(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSync_LostAckRetryDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	row, err := f.colls.Add(ctx, newPlant("Pothos"))
	require.NoError(t, err)

	f.server.dropAck = true
	_, err = f.sync.Sync(ctx)
	require.Error(t, err)
	assert.True(t, f.cursor(t).IsZero(), "cursor must not move on failure")

	got, err := f.colls.Get(ctx, row.LocalID)
	require.NoError(t, err)
	assert.True(t, got.Pending())

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Len(t, f.server.records, 1)

	rows, err := f.colls.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsSynced)
}

func TestSync_ServerCopyWinsConflict(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	row, err := f.colls.Add(ctx, newPlant("Ficus"))
	require.NoError(t, err)
	_, err = f.sync.Sync(ctx)
	require.NoError(t, err)
	synced, err := f.colls.Get(ctx, row.LocalID)
	require.NoError(t, err)

	// edited on another device
	f.server.update(synced.ID, func(r *api.CollectionRecord) { r.CommonName = "Fiddle leaf" })

	// and locally while offline
	f.clock.Advance(time.Minute)
	_, err = f.colls.Update(ctx, row.LocalID, api.CollectionPatch{CommonName: patch.Set("My ficus")})
	require.NoError(t, err)

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conflicts)
	assert.Equal(t, 1, report.Pushed)

	got, err := f.colls.Get(ctx, synced.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fiddle leaf", got.CommonName)
	assert.True(t, got.IsSynced)
	assert.Equal(t, f.server.records[synced.ID].UpdatedAt, f.cursor(t))
}

func TestSync_RejectedRowsStayPending(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	good, err := f.colls.Add(ctx, newPlant("Aloe"))
	require.NoError(t, err)
	bad, err := f.colls.Add(ctx, newPlant("Cactus"))
	require.NoError(t, err)
	f.server.reject[bad.LocalID] = "plant_id unknown"

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Equal(t, 1, report.Failed)

	got, err := f.colls.Get(ctx, good.LocalID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)

	got, err = f.colls.Get(ctx, bad.LocalID)
	require.NoError(t, err)
	assert.True(t, got.Pending())
	assert.Empty(t, got.ID)

	delete(f.server.reject, bad.LocalID)
	report, err = f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Zero(t, report.Failed)
}

func TestSync_PullsRemoteRecords(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	now := f.server.tick()
	f.server.records["srv-1"] = api.CollectionRecord{
		ID: "srv-1", UserID: "u1", PlantID: "p2", CommonName: "Basil",
		CareFrequencyDays: 3, HealthStatus: api.HealthHealthy, IsSynced: true,
		CreatedAt: now, UpdatedAt: now,
	}

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pulled)
	assert.Equal(t, now, f.cursor(t))

	got, err := f.colls.Get(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "Basil", got.CommonName)
	assert.True(t, got.IsSynced)

	f.server.update("srv-1", func(r *api.CollectionRecord) { r.HealthStatus = api.HealthSick })
	report, err = f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pulled)

	got, err = f.colls.Get(ctx, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, api.HealthSick, got.HealthStatus)
}

func TestSync_PullFailureKeepsCursor(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	_, err := f.colls.Add(ctx, newPlant("Ivy"))
	require.NoError(t, err)
	f.server.pullErr = &client.RemoteError{Kind: client.KindServerError, Status: 503}

	_, err = f.sync.Sync(ctx)
	require.ErrorIs(t, err, client.ErrServerError)
	assert.True(t, f.cursor(t).IsZero())

	// the push half still landed
	pending, err := f.repos.Collections.GetPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSync_ServerDownLeavesEverythingPending(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	_, err := f.colls.Add(ctx, newPlant("Ivy"))
	require.NoError(t, err)
	f.server.down = true

	_, err = f.sync.Sync(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)

	pending, err := f.repos.Collections.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestSync_OverlappingCallIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	_, err := f.colls.Add(ctx, newPlant("Orchid"))
	require.NoError(t, err)
	f.server.enterCh = make(chan struct{})
	f.server.blockCh = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.sync.Sync(ctx)
		done <- err
	}()
	<-f.server.enterCh

	report, err := f.sync.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	close(f.server.blockCh)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.server.pushes)
}
