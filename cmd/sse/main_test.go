package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asynkron/hiertext/internal/config"
	"github.com/asynkron/hiertext/internal/logging"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"l/a.txt":   "a\nb\n",
		"r/a.txt":   "a\nc\n",
		"r/new.txt": "n\n",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	s := &server{root: root, cfg: cfg, logger: logging.NewMemoryLogger()}
	mux := http.NewServeMux()
	mux.HandleFunc("/diff", s.diffHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, query url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + "/diff?" + query.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestDiffHandlerStreamsEvents(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := get(t, srv, url.Values{"left": {"l"}, "right": {"r"}, "format": {"unified"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.True(t, strings.HasPrefix(body, ": connected\n\n"))

	changed := strings.Index(body, "event: changed\n")
	added := strings.Index(body, "event: added\n")
	require.Positive(t, changed)
	require.Greater(t, added, changed)
	require.Contains(t, body, `@@ -1,2 +1,2 @@\n a\n-b\n+c\n`)
	require.True(t, strings.HasSuffix(body, "event: end\ndata: {\"differs\":true,\"events\":2}\n\n"))
}

func TestDiffHandlerRejectsBadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, _ := get(t, srv, url.Values{"left": {"l"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = get(t, srv, url.Values{"left": {"l"}, "right": {"r"}, "format": {"sideways"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Paths cannot leave the root.
	resp, _ = get(t, srv, url.Values{"left": {"../../l"}, "right": {"../missing"}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSSEWriteSplitsLines(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	require.NoError(t, sseWrite(rec, rec, "changed", "one\ntwo"))
	require.Equal(t, "event: changed\ndata: one\ndata: two\n\n", rec.Body.String())
	require.True(t, rec.Flushed)
}
