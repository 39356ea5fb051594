package cmd

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// fakeES answers the endpoints the CLI commands hit and keeps the last
// search body.
type fakeES struct {
	mu         sync.Mutex
	lastSearch map[string]any
}

func (f *fakeES) searchBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSearch
}

func (f *fakeES) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /{index}/_search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastSearch = body
		f.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{"hits": map[string]any{
			"total":     map[string]any{"value": 2},
			"max_score": 2.5,
			"hits": []any{
				map[string]any{
					"_id":       "doc-1",
					"_score":    2.5,
					"_source":   map[string]any{"path": map[string]any{"virtual": "/reports/q3.pdf"}},
					"highlight": map[string]any{"content": []any{"the <mark>quarterly</mark> report"}},
				},
				map[string]any{
					"_id":     "doc-2",
					"_score":  1.25,
					"_source": map[string]any{"file": map[string]any{"filename": "notes.txt"}},
				},
			},
		}})
	})
	mux.HandleFunc("POST /{index}/_count", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 42})
	})
	mux.HandleFunc("GET /{index}/_doc/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "doc-1" {
			writeJSON(w, http.StatusNotFound, map[string]any{"_index": r.PathValue("index"), "_id": r.PathValue("id"), "found": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"_index": r.PathValue("index"), "_id": "doc-1", "_version": 3, "found": true,
			"_source": map[string]any{"content": "quarterly report"},
		})
	})
	mux.HandleFunc("GET /_cat/indices", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []any{
			map[string]any{"index": "documents", "docs.count": "42", "store.size": "1.1mb"},
			map[string]any{"index": "finance", "docs.count": "7", "store.size": "12kb"},
		})
	})
	mux.HandleFunc("GET /_cluster/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"cluster_name": "docker-cluster", "status": "yellow", "number_of_nodes": 1,
			"active_primary_shards": 3, "active_shards": 3,
		})
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"name": "es01", "version": map[string]any{"number": "8.15.1"}})
	})
	mux.HandleFunc("GET /_stats/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"_all": map[string]any{"total": map[string]any{"search": map[string]any{
				"query_total": 4, "query_time_in_millis": 10, "query_current": 1,
			}}},
			"indices": map[string]any{"documents": map[string]any{}, "finance": map[string]any{}},
		})
	})
	mux.HandleFunc("GET /{index}/_settings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{r.PathValue("index"): map[string]any{
			"settings": map[string]any{"index": map[string]any{"number_of_shards": "1"}},
		}})
	})
	mux.HandleFunc("GET /{index}/_mapping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{r.PathValue("index"): map[string]any{
			"mappings": map[string]any{"properties": map[string]any{"content": map[string]any{"type": "text"}}},
		}})
	})
	mux.HandleFunc("GET /{index}/_stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"indices": map[string]any{r.PathValue("index"): map[string]any{
			"total": map[string]any{
				"docs":   map[string]any{"count": 42},
				"store":  map[string]any{"size_in_bytes": 2048},
				"search": map[string]any{"query_total": 4},
			},
		}}})
	})
	return mux
}

// cliEnv isolates a CLI run: its own config home, log dir and project dir,
// pointed at a fake cluster.
type cliEnv struct {
	es         *fakeES
	projectDir string
	configHome string
	logDir     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	fake := &fakeES{}
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)

	env := &cliEnv{
		es:         fake,
		projectDir: t.TempDir(),
		configHome: t.TempDir(),
		logDir:     t.TempDir(),
	}
	t.Setenv("XDG_CONFIG_HOME", env.configHome)
	t.Setenv("ELASTICMCP_LOG_DIR", env.logDir)
	t.Setenv("ES_HOST", ts.URL)
	t.Setenv("ES_DEFAULT_INDEX", "")
	t.Setenv("ELASTICMCP_TRANSPORT", "")
	t.Setenv("ELASTICMCP_TIMEOUT", "")
	t.Setenv("NO_COLOR", "1")

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return env
}

// run executes the root command with args and returns stdout and stderr.
func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--dir", e.projectDir))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
