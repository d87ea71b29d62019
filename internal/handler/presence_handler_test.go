package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"presence-be/internal/middleware"
	"presence-be/internal/repository"
	"presence-be/internal/service"
	"presence-be/pkg/logger"
	"presence-be/pkg/redis"
)

const testCounterName = "global"

// newTestRouter wires the front door the way main does: CORS overlay,
// slash normalization, presence routes and the JSON not-found envelope.
func newTestRouter(t *testing.T, dispatcher *Dispatcher) *chi.Mux {
	t.Helper()

	log := logger.NewNop()
	h := NewPresenceHandler(dispatcher, testCounterName, log)

	r := chi.NewRouter()
	r.Use(middleware.CORS("*", log))
	r.Use(chiMiddleware.StripSlashes)
	h.RegisterRoutes(r)
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)
	return r
}

func newRunningDispatcher(t *testing.T) (*Dispatcher, repository.CounterStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewCounterStore(client, logger.NewNop())
	svc := service.NewPresenceService(store, nil, logger.NewNop(), 180, 30)
	require.NoError(t, svc.Start(context.Background()))

	dispatcher := NewDispatcher()
	dispatcher.Register(testCounterName, svc)
	return dispatcher, store
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHeartbeatEndpoint(t *testing.T) {
	dispatcher, store := newRunningDispatcher(t)
	router := newTestRouter(t, dispatcher)

	tests := []struct {
		name          string
		body          string
		wantStatus    int
		wantOK        bool
		wantError     string
		wantTotalBump bool
	}{
		{
			name:          "valid id",
			body:          `{"id":"visitor-1"}`,
			wantStatus:    http.StatusOK,
			wantOK:        true,
			wantTotalBump: true,
		},
		{
			name:       "malformed JSON",
			body:       `{"id":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "missing id",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid visitor id",
		},
		{
			name:       "empty id after trim",
			body:       `{"id":"   "}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid visitor id",
		},
		{
			name:       "oversized id",
			body:       `{"id":"` + strings.Repeat("x", 129) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid visitor id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := store.LoadTotal(context.Background())
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/heartbeat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			body := decodeBody(t, rec)
			if tt.wantOK {
				assert.Equal(t, true, body["ok"])
				assert.EqualValues(t, 1, body["totalVisitors"])
			} else {
				assert.Equal(t, false, body["ok"])
				assert.Equal(t, tt.wantError, body["error"])
			}

			after, err := store.LoadTotal(context.Background())
			require.NoError(t, err)
			if tt.wantTotalBump {
				assert.Equal(t, before+1, after)
			} else {
				assert.Equal(t, before, after, "rejected request must not mutate state")
			}
		})
	}
}

func TestOnlineEndpoint(t *testing.T) {
	dispatcher, _ := newRunningDispatcher(t)
	router := newTestRouter(t, dispatcher)

	// Two visitors heartbeat first
	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodPost, "/heartbeat", strings.NewReader(`{"id":"`+id+`"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/online", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["online"])
	assert.EqualValues(t, 2, body["totalVisitors"])
	assert.EqualValues(t, 180, body["windowSeconds"])
}

func TestTrailingSlashIsNormalized(t *testing.T) {
	dispatcher, _ := newRunningDispatcher(t)
	router := newTestRouter(t, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/online/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreflightShortCircuits(t *testing.T) {
	dispatcher, _ := newRunningDispatcher(t)
	router := newTestRouter(t, dispatcher)

	req := httptest.NewRequest(http.MethodOptions, "/heartbeat", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSHeadersOnEveryResponse(t *testing.T) {
	dispatcher, _ := newRunningDispatcher(t)
	router := newTestRouter(t, dispatcher)

	req := httptest.NewRequest(http.MethodGet, "/online", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestUnmatchedRoutesReturnNotFoundEnvelope(t *testing.T) {
	dispatcher, _ := newRunningDispatcher(t)
	router := newTestRouter(t, dispatcher)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/nope"},
		{name: "wrong method on heartbeat", method: http.MethodDelete, path: "/heartbeat"},
		{name: "wrong method on online", method: http.MethodPost, path: "/online"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, "not found", body["error"])
		})
	}
}

func TestMissingBindingFailsFast(t *testing.T) {
	// Dispatcher with no registered instance, as when Redis is not configured
	router := newTestRouter(t, NewDispatcher())

	for _, target := range []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodPost, path: "/heartbeat", body: `{"id":"a"}`},
		{method: http.MethodGet, path: "/online"},
	} {
		var reader *strings.Reader
		if target.body != "" {
			reader = strings.NewReader(target.body)
		} else {
			reader = strings.NewReader("")
		}
		req := httptest.NewRequest(target.method, target.path, reader)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "counter binding is missing", body["error"])
	}
}
