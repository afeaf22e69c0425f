package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ttlcache "github.com/jellydator/ttlcache/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hieulq/nestup-evn/internal/evn"
	"github.com/hieulq/nestup-evn/internal/models"
	"github.com/hieulq/nestup-evn/internal/sensor"
	"github.com/hieulq/nestup-evn/internal/snapshot"
)

var ict = time.FixedZone("ICT", 7*60*60)

type fakeSource struct {
	mu   sync.Mutex
	data sensor.Data
	err  error
}

func (f *fakeSource) Load(context.Context) (sensor.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.err
}

func (f *fakeSource) set(data sensor.Data, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = data, err
}

func newTestServer(t *testing.T, source snapshot.Source, ttl time.Duration) *Server {
	t.Helper()
	area, err := evn.ForCustomer("PD1300123456")
	require.NoError(t, err)

	s, err := New(Options{
		Addr:            ":0",
		Area:            area,
		CustomerID:      "pd1300123456",
		RefreshInterval: time.Minute,
		StateTTL:        ttl,
	}, source, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestRegistryEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeSource{}, time.Hour)

	var areas []models.AreaView
	assert.Equal(t, http.StatusOK, get(t, s, "/api/areas", &areas))
	assert.Len(t, areas, 5)

	var supported []models.AreaView
	assert.Equal(t, http.StatusOK, get(t, s, "/api/areas?supported=true", &supported))
	for _, a := range supported {
		assert.True(t, a.Supported)
	}

	var area models.AreaView
	assert.Equal(t, http.StatusOK, get(t, s, "/api/areas/evnnpc", &area))
	assert.Equal(t, []string{"PA", "PH", "PM", "PN"}, area.Patterns)
	assert.False(t, area.AuthNeeded)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/areas/EVNXYZ", nil))

	var sensors []models.SensorView
	assert.Equal(t, http.StatusOK, get(t, s, "/api/sensors", &sensors))
	require.Len(t, sensors, 7)
	assert.Equal(t, sensor.KeyEconPerDay, sensors[0].Key)
}

func TestStates(t *testing.T) {
	source := &fakeSource{}
	s := newTestServer(t, source, time.Hour)

	t.Run("empty before refresh", func(t *testing.T) {
		var states []models.Entity
		assert.Equal(t, http.StatusOK, get(t, s, "/api/states", &states))
		assert.Empty(t, states)
	})

	t.Run("after refresh", func(t *testing.T) {
		source.set(snapshot.Sample(time.Date(2024, 5, 14, 8, 30, 0, 0, ict)), nil)
		require.NoError(t, s.Refresh(context.Background()))

		var states []models.Entity
		assert.Equal(t, http.StatusOK, get(t, s, "/api/states", &states))
		require.Len(t, states, 7)
		assert.Equal(t, "sensor.pd1300123456_econ_per_day", states[0].EntityID)
		assert.Equal(t, "11", states[0].State)
		assert.Equal(t, "EVNHANOI", states[0].Attributes.Area)

		var one models.Entity
		assert.Equal(t, http.StatusOK, get(t, s, "/api/states/sensor.pd1300123456_to_date", &one))
		assert.Equal(t, "2024-05-13", one.State)

		assert.Equal(t, http.StatusNotFound, get(t, s, "/api/states/sensor.nope", nil))

		var health map[string]any
		assert.Equal(t, http.StatusOK, get(t, s, "/health", &health))
		assert.Equal(t, "ok", health["status"])
		assert.EqualValues(t, 7, health["entities"])
	})

	t.Run("partial data keeps serving", func(t *testing.T) {
		data := snapshot.Sample(time.Date(2024, 5, 14, 8, 30, 0, 0, ict))
		delete(data, sensor.KeyEcostPerDay)
		source.set(data, nil)

		err := s.Refresh(context.Background())
		assert.ErrorIs(t, err, sensor.ErrMissingValue)

		var one models.Entity
		assert.Equal(t, http.StatusOK, get(t, s, "/api/states/sensor.pd1300123456_ecost_per_day", &one))
		assert.Equal(t, models.StateUnavailable, one.State)

		var health map[string]any
		get(t, s, "/health", &health)
		assert.Equal(t, "degraded", health["status"])
	})

	t.Run("failed load keeps last states", func(t *testing.T) {
		source.set(nil, errors.New("snapshot missing"))
		assert.Error(t, s.Refresh(context.Background()))

		var states []models.Entity
		get(t, s, "/api/states", &states)
		assert.Len(t, states, 7)
	})
}

func TestStatesExpire(t *testing.T) {
	source := &fakeSource{data: snapshot.Sample(time.Date(2024, 5, 14, 8, 30, 0, 0, ict))}
	s := newTestServer(t, source, 20*time.Millisecond)
	require.NoError(t, s.Refresh(context.Background()))

	var states []models.Entity
	get(t, s, "/api/states", &states)
	require.Len(t, states, 7)

	time.Sleep(100 * time.Millisecond)

	states = nil
	get(t, s, "/api/states", &states)
	assert.Empty(t, states)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{CustomerID: "PD1300123456"}, &fakeSource{}, zap.NewNop())
	assert.ErrorContains(t, err, "refresh interval")

	_, err = New(Options{CustomerID: "", RefreshInterval: time.Minute}, &fakeSource{}, zap.NewNop())
	assert.ErrorIs(t, err, evn.ErrInvalidCustomerID)
}

func TestRun(t *testing.T) {
	source := &fakeSource{data: snapshot.Sample(time.Now())}
	s := newTestServer(t, source, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(s.currentStates()) == 7
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

type countingSource struct {
	loads atomic.Int32
}

func (c *countingSource) Load(context.Context) (sensor.Data, error) {
	c.loads.Add(1)
	return snapshot.Sample(time.Now()), nil
}

func TestRunStopsRefreshWhenListenFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	area, err := evn.ForCustomer("PD1300123456")
	require.NoError(t, err)
	source := &countingSource{}
	s, err := New(Options{
		Addr:            ln.Addr().String(),
		Area:            area,
		CustomerID:      "PD1300123456",
		RefreshInterval: 5 * time.Millisecond,
		StateTTL:        time.Hour,
	}, source, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.Error(t, s.Run(ctx))

	loads := source.loads.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, loads, source.loads.Load())
}

func TestRefreshRecordsStoreFailure(t *testing.T) {
	source := &fakeSource{data: snapshot.Sample(time.Date(2024, 5, 14, 8, 30, 0, 0, ict))}
	s := newTestServer(t, source, time.Hour)
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.states.Close())
	err := s.Refresh(context.Background())
	require.ErrorIs(t, err, ttlcache.ErrClosed)

	var health map[string]any
	get(t, s, "/health", &health)
	assert.Equal(t, "degraded", health["status"])
	assert.Contains(t, health["error"], "storing")
}
