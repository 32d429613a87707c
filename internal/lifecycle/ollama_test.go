package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTagsServer(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models":[`)
		for i, m := range models {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name":%q}`, m)
		}
		fmt.Fprint(w, `]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestManager_DefaultHost(t *testing.T) {
	m := NewManager("")
	assert.Equal(t, "http://localhost:11434", m.Host())
}

func TestManager_Running(t *testing.T) {
	srv := newTagsServer(t)
	assert.True(t, NewManager(srv.URL).Running(context.Background()))
	assert.False(t, NewManager("http://127.0.0.1:1").Running(context.Background()))
}

func TestManager_ListModels(t *testing.T) {
	srv := newTagsServer(t, "qwen3-embedding:0.6b", "llama3:latest")

	names, err := NewManager(srv.URL).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"qwen3-embedding:0.6b", "llama3:latest"}, names)
}

func TestManager_HasModel(t *testing.T) {
	srv := newTagsServer(t, "llama3:latest")
	m := NewManager(srv.URL)

	has, err := m.HasModel(context.Background(), "llama3")
	require.NoError(t, err)
	assert.True(t, has, "bare name should match the :latest tag")

	has, err = m.HasModel(context.Background(), "qwen3-embedding:0.6b")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestManager_HasModelUnreachable(t *testing.T) {
	_, err := NewManager("http://127.0.0.1:1").HasModel(context.Background(), "llama3")
	require.Error(t, err)
}

func TestManager_PullModelStreamsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/pull", r.URL.Path)
		fmt.Fprintln(w, `{"status":"pulling manifest"}`)
		fmt.Fprintln(w, `{"status":"downloading","completed":50,"total":100}`)
		fmt.Fprintln(w, `{"status":"success"}`)
	}))
	defer srv.Close()

	var updates []PullProgress
	err := NewManager(srv.URL).PullModel(context.Background(), "llama3", func(p PullProgress) {
		updates = append(updates, p)
	})
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, "downloading", updates[1].Status)
	assert.InDelta(t, 50.0, updates[1].Percent(), 0.001)
}

func TestManager_PullModelServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `{"error":"model not found"}`)
	}))
	defer srv.Close()

	err := NewManager(srv.URL).PullModel(context.Background(), "nope", nil)
	require.ErrorContains(t, err, "model not found")
}

func TestManager_WaitForReadyTimesOut(t *testing.T) {
	m := NewManager("http://127.0.0.1:1")
	err := m.WaitForReady(context.Background(), 10*time.Millisecond)
	require.Error(t, err)
}
