package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/retry"
)

// childServer serves total children for every parent and records the start
// offsets it was asked for.
type childServer struct {
	mu     sync.Mutex
	starts []int
	total  int
}

func (s *childServer) recorded() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.starts...)
}

func (s *childServer) handler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, "body.storage", r.URL.Query().Get("expand"))

		s.mu.Lock()
		s.starts = append(s.starts, start)
		s.mu.Unlock()

		results := []map[string]any{}
		for i := start; i < start+limit && i < s.total; i++ {
			results = append(results, map[string]any{
				"id":    strconv.Itoa(i),
				"title": fmt.Sprintf("Page %d", i),
				"body":  map[string]any{"storage": map[string]any{"value": "<p>x</p>"}},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results, "start": start, "limit": limit, "size": len(results)})
	}
}

func TestFetchChildren_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		wantStarts []int
	}{
		{name: "short last page", total: 237, wantStarts: []int{0, 100, 200}},
		{name: "exact multiple costs one extra request", total: 100, wantStarts: []int{0, 100}},
		{name: "no children", total: 0, wantStarts: []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := &childServer{total: tt.total}
			srv := httptest.NewServer(cs.handler(t))
			defer srv.Close()

			c := NewClient(srv.URL, "tok")
			pages, err := c.FetchChildren(context.Background(), "42")
			require.NoError(t, err)
			assert.Len(t, pages, tt.total)
			assert.Equal(t, tt.wantStarts, cs.recorded())
			for i, p := range pages {
				assert.Equal(t, strconv.Itoa(i), p.ID, "results must keep request order")
			}
		})
	}
}

func TestClient_RequestShape(t *testing.T) {
	var gotPath, gotAuth, gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"id":"3834229","title":"Handbook"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/wiki/", "secret")
	page, err := c.FetchPage(context.Background(), "3834229")
	require.NoError(t, err)

	assert.Equal(t, Page{ID: "3834229", Title: "Handbook"}, page)
	assert.Equal(t, "/wiki/rest/api/content/3834229", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
	assert.Contains(t, gotUA, "confexport/")
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCat   errors.ErrorCategory
		retryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: "{}", wantCat: errors.CategoryAuth},
		{name: "forbidden", status: http.StatusForbidden, body: "{}", wantCat: errors.CategoryAuth},
		{name: "missing page", status: http.StatusNotFound, body: "{}", wantCat: errors.CategoryNotFound},
		{name: "server error", status: http.StatusBadGateway, body: "oops", wantCat: errors.CategoryContentAPI, retryable: true},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "", wantCat: errors.CategoryContentAPI, retryable: true},
		{name: "bad request", status: http.StatusBadRequest, body: "", wantCat: errors.CategoryContentAPI},
		{name: "invalid json", status: http.StatusOK, body: "not json", wantCat: errors.CategoryDataShape},
		{name: "missing title", status: http.StatusOK, body: `{"id":"1"}`, wantCat: errors.CategoryDataShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "tok").FetchPage(context.Background(), "1")
			require.Error(t, err)
			assert.Equal(t, tt.wantCat, errors.GetCategory(err))
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "tok").FetchChildren(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestFetchChildren_MalformedChild(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"id":"1","title":"Good","body":{"storage":{"value":"<p>a</p>"}}},
			{"id":"2","title":"No body"},
			{"id":"3","title":"Empty body","body":{"storage":{"value":""}}}
		]}`))
	})
	srv := httptest.NewServer(handler)
	defer srv.Close()

	t.Run("fatal by default", func(t *testing.T) {
		_, err := NewClient(srv.URL, "tok").FetchChildren(context.Background(), "root")
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryDataShape))
	})

	t.Run("skipped when enabled", func(t *testing.T) {
		c := NewClient(srv.URL, "tok", WithSkipMalformed(true))
		pages, err := c.FetchChildren(context.Background(), "root")
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "1", pages[0].ID)
		assert.Equal(t, "3", pages[1].ID)
		assert.Empty(t, pages[1].Body)
		assert.Equal(t, 1, c.Skipped())
	})
}

func TestFetchChildren_EmptyTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"id":"7","title":"","body":{"storage":{"value":"<p>x</p>"}}},
			{"id":"8","body":{"storage":{"value":"<p>y</p>"}}}
		]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "tok").FetchChildren(context.Background(), "root")
	require.Error(t, err, "absent title is malformed")
	assert.True(t, errors.HasCategory(err, errors.CategoryDataShape))

	c := NewClient(srv.URL, "tok", WithSkipMalformed(true))
	pages, err := c.FetchChildren(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, Page{ID: "7", Title: "", Body: "<p>x</p>"}, pages[0])
	assert.Equal(t, 1, c.Skipped())
}

func TestFetchPage_EmptyTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/api/content/9" {
			_, _ = w.Write([]byte(`{"id":"9","title":""}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"10"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	page, err := c.FetchPage(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "9", page.ID)
	assert.Empty(t, page.Title)

	_, err = c.FetchPage(context.Background(), "10")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryDataShape))
}

func TestClient_Retry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"9","title":"Recovered"}`))
	}))
	defer srv.Close()

	t.Run("no retry by default", func(t *testing.T) {
		calls.Store(0)
		_, err := NewClient(srv.URL, "tok").FetchPage(context.Background(), "9")
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("retries transient failures", func(t *testing.T) {
		calls.Store(0)
		policy := retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 3)
		page, err := NewClient(srv.URL, "tok", WithRetryPolicy(policy)).FetchPage(context.Background(), "9")
		require.NoError(t, err)
		assert.Equal(t, "Recovered", page.Title)
		assert.Equal(t, int32(3), calls.Load())
	})
}

func TestFetchChildren_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient("http://127.0.0.1:1", "tok").FetchChildren(ctx, "1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Confluence.BaseURL = "https://wiki.example.com"
	cfg.Confluence.PageSize = 25
	cfg.Confluence.SkipMalformed = true

	c := NewClientFromConfig(cfg, "tok")
	assert.Equal(t, 25, c.PageSize())
	assert.True(t, c.skipMalformed)
	assert.Equal(t, "https://wiki.example.com", c.baseURL)
}
