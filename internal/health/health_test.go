package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riyaazhq/riyaaz/internal/health"
	"github.com/riyaazhq/riyaaz/internal/vocab"
)

// probeBody mirrors the JSON shape of the health endpoints.
type probeBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// storeChecker is the readiness check the trainer registers: a statistics
// round trip against the review store.
func storeChecker(store vocab.Store) health.Checker {
	return health.Checker{
		Name: "store",
		Check: func(ctx context.Context) error {
			_, err := store.Statistics(ctx)
			return err
		},
	}
}

// failingStore wraps a Store so Statistics reports a broken backend.
type failingStore struct {
	vocab.Store
}

func (failingStore) Statistics(context.Context) (vocab.Stats, error) {
	return vocab.Stats{}, errors.New("database is locked")
}

func get(t *testing.T, h http.HandlerFunc, path string) (int, probeBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", path, nil))

	var body probeBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return rec.Code, body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	// liveness ignores the store entirely: a process that serves HTTP is
	// alive even when its backend is down
	h := health.New(storeChecker(failingStore{}))

	code, body := get(t, h.Healthz, "/healthz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
}

func TestReadyz_StoreRoundTrip(t *testing.T) {
	t.Parallel()

	h := health.New(storeChecker(vocab.NewMemStore()))

	code, body := get(t, h.Readyz, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body.Checks["store"] != "ok" {
		t.Errorf("store check = %q, want ok", body.Checks["store"])
	}
}

func TestReadyz_BrokenStore(t *testing.T) {
	t.Parallel()

	h := health.New(storeChecker(failingStore{}))

	code, body := get(t, h.Readyz, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != "fail" {
		t.Errorf("body status = %q, want fail", body.Status)
	}
	if body.Checks["store"] != "fail: database is locked" {
		t.Errorf("store check = %q", body.Checks["store"])
	}
}

func TestReadyz_MixedCheckers(t *testing.T) {
	t.Parallel()

	// a healthy store does not mask an unreachable speech backend
	h := health.New(
		storeChecker(vocab.NewMemStore()),
		health.Checker{Name: "stt", Check: func(context.Context) error {
			return errors.New("whisper server unreachable")
		}},
	)

	code, body := get(t, h.Readyz, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Checks["store"] != "ok" {
		t.Errorf("store check = %q, want ok", body.Checks["store"])
	}
	if body.Checks["stt"] != "fail: whisper server unreachable" {
		t.Errorf("stt check = %q", body.Checks["stt"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	t.Parallel()

	code, body := get(t, health.New().Readyz, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
}

func TestReadyz_CancelledRequest(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New(storeChecker(vocab.NewMemStore())).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
			}
		})
	}
}
