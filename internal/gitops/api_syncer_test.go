package gitops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newArgoServer fakes the minimal API surface the syncer touches.
func newArgoServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var syncRequests int64

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username != "admin" || creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
	})
	mux.HandleFunc("/api/v1/applications/infrastructure-dev/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		atomic.AddInt64(&syncRequests, 1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/applications/infrastructure-dev", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": map[string]interface{}{
				"sync":   map[string]string{"status": "Synced"},
				"health": map[string]string{"status": "Healthy"},
			},
		})
	})
	mux.HandleFunc("/api/v1/applications/missing-app", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &syncRequests
}

func TestAPISyncer_AppExists(t *testing.T) {
	t.Parallel()
	server, _ := newArgoServer(t)
	syncer := NewAPISyncer(server.URL, "admin", "hunter2")

	exists, err := syncer.AppExists(context.Background(), "infrastructure-dev")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = syncer.AppExists(context.Background(), "missing-app")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAPISyncer_SyncRefreshesThenSyncs(t *testing.T) {
	t.Parallel()
	server, syncRequests := newArgoServer(t)
	syncer := NewAPISyncer(server.URL, "admin", "hunter2")

	require.NoError(t, syncer.Sync(context.Background(), "infrastructure-dev"))
	assert.Equal(t, int64(1), atomic.LoadInt64(syncRequests))
}

func TestAPISyncer_Status(t *testing.T) {
	t.Parallel()
	server, _ := newArgoServer(t)
	syncer := NewAPISyncer(server.URL, "admin", "hunter2")

	status, err := syncer.Status(context.Background(), "infrastructure-dev")

	require.NoError(t, err)
	assert.True(t, status.Ready())
}

func TestAPISyncer_BadCredentials(t *testing.T) {
	t.Parallel()
	server, _ := newArgoServer(t)
	syncer := NewAPISyncer(server.URL, "admin", "wrong")

	_, err := syncer.AppExists(context.Background(), "infrastructure-dev")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}

func TestAPISyncer_Strategy(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "api", NewAPISyncer("https://localhost", "admin", "pw").Strategy())
}
