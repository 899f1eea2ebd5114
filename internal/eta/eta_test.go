package eta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

func stop(addr string) models.Stop { return models.Stop{Address: addr} }

func newEstimator() *Estimator {
	return &Estimator{Client: DefaultTable(), Locator: geo.Fixed(stop(DriverOrigin))}
}

func TestLookupTableSymmetric(t *testing.T) {
	tbl := DefaultTable()
	a, err := tbl.Between("CSP", "Benet Hall")
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	b, err := tbl.Between("Benet Hall", "CSP")
	if err != nil {
		t.Fatalf("between reversed: %v", err)
	}
	if a != 300 || b != 300 {
		t.Fatalf("expected 300s both ways, got %v and %v", a, b)
	}
	if v, _ := tbl.Between("CSP", "CSP"); v != 0 {
		t.Fatalf("same place should be 0, got %v", v)
	}
}

func TestLookupTableMissingSegment(t *testing.T) {
	_, err := DefaultTable().Between("CSP", "Nowhere")
	if !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestReadTable(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(`[{"from":"A","to":"B","seconds":42}]`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v, err := tbl.Between("B", "A"); err != nil || v != 42 {
		t.Fatalf("expected 42, got %v (%v)", v, err)
	}
}

func TestEstimateIdleRoute(t *testing.T) {
	est, err := newEstimator().Estimate(context.Background(), models.DriverRoute{DriverID: 1})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.Dest != nil || len(est.Queue) != 0 || est.Length() != 0 {
		t.Fatalf("idle route should have no estimates, got %+v", est)
	}
}

func TestEstimateChainsQueue(t *testing.T) {
	dest := stop("Benet Hall")
	route := models.DriverRoute{DriverID: 1, Dest: &dest, Queue: []models.Stop{stop("CSP"), stop("Douthit Hills Hub"), stop("CSP")}}
	est, err := newEstimator().Estimate(context.Background(), route)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	want := []float64{600 + 300, 600 + 300 + 240, 600 + 300 + 240 + 240}
	if est.Dest.ETASeconds != 600 {
		t.Fatalf("dest eta = %v, want 600", est.Dest.ETASeconds)
	}
	for i, q := range est.Queue {
		if q.ETASeconds != want[i] {
			t.Fatalf("queue[%d] eta = %v, want %v", i, q.ETASeconds, want[i])
		}
		if i > 0 && est.Queue[i-1].ETASeconds > q.ETASeconds {
			t.Fatalf("etas not monotonic at %d", i)
		}
	}
	if est.Length() != want[2] {
		t.Fatalf("length = %v, want %v", est.Length(), want[2])
	}
}

func TestEstimateMissingSegmentFails(t *testing.T) {
	dest := stop("Benet Hall")
	route := models.DriverRoute{DriverID: 1, Dest: &dest, Queue: []models.Stop{stop("Mars")}}
	if _, err := newEstimator().Estimate(context.Background(), route); !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound, got %v", err)
	}
}

func TestEstimateAllRejectsUnreachableQueue(t *testing.T) {
	bad := models.DriverRoute{DriverID: 2, Queue: []models.Stop{stop("CSP")}}
	if _, err := newEstimator().EstimateAll(context.Background(), []models.DriverRoute{bad}); !errors.Is(err, models.ErrUnreachableQueue) {
		t.Fatalf("expected ErrUnreachableQueue, got %v", err)
	}
}

type countingClient struct{ calls int }

func (c *countingClient) EstimateSeconds(context.Context, models.Stop, models.Stop) (float64, error) {
	c.calls++
	return 12, nil
}

func TestCachedClient(t *testing.T) {
	next := &countingClient{}
	c := &CachedClient{Next: next, Cache: NewCache(time.Minute)}
	a := models.Stop{Location: models.LatLng{Lat: 1, Lng: 1}}
	b := models.Stop{Location: models.LatLng{Lat: 2, Lng: 2}}
	for i := 0; i < 3; i++ {
		if v, err := c.EstimateSeconds(context.Background(), a, b); err != nil || v != 12 {
			t.Fatalf("expected 12, got %v (%v)", v, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", next.calls)
	}
}

func TestSpeedClient(t *testing.T) {
	a := models.Stop{Location: models.LatLng{Lat: 0, Lng: 0}}
	b := models.Stop{Location: models.LatLng{Lat: 0, Lng: 0.01}}
	v, _ := SpeedClient{SpeedMps: 10}.EstimateSeconds(context.Background(), a, b)
	if v < 100 || v > 120 {
		t.Fatalf("expected ~111s for ~1.1km at 10m/s, got %v", v)
	}
}

func TestOSRMClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"code":"Ok","routes":[{"duration":321.5}]}`))
	}))
	defer srv.Close()
	v, err := NewOSRMClient(srv.URL).EstimateSeconds(context.Background(), stop("a"), stop("b"))
	if err != nil {
		t.Fatalf("osrm: %v", err)
	}
	if v != 321.5 {
		t.Fatalf("expected 321.5, got %v", v)
	}
}

func TestOSRMClientNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()
	if _, err := NewOSRMClient(srv.URL).EstimateSeconds(context.Background(), stop("a"), stop("b")); !errors.Is(err, ErrSegmentNotFound) {
		t.Fatalf("expected ErrSegmentNotFound for NoRoute, got %v", err)
	}
}
