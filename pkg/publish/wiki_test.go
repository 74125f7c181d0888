package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeWiki(t *testing.T, body string, version int) (*httptest.Server, *map[string]interface{}) {
	var updated map[string]interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/content/4423704", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":      "4423704",
				"title":   "Weekly Summaries",
				"version": map[string]int{"number": version},
				"body": map[string]interface{}{
					"storage": map[string]string{"value": body},
				},
			})
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&updated))
			w.WriteHeader(http.StatusOK)
		}
	})

	return httptest.NewServer(mux), &updated
}

func TestGetPage(t *testing.T) {
	server, _ := newFakeWiki(t, "<p>old</p>", 7)
	defer server.Close()

	p := NewWithConfig(WikiPublisherConfig{BaseURL: server.URL, Token: "tok"})

	page, err := p.GetPage(context.Background(), "4423704")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Summaries", page.Title)
	assert.Equal(t, "<p>old</p>", page.Body)
	assert.Equal(t, 7, page.Version)
}

func TestAppendSummaryPrepends(t *testing.T) {
	server, updated := newFakeWiki(t, "<p>old content</p>", 7)
	defer server.Close()

	p := NewWithConfig(WikiPublisherConfig{BaseURL: server.URL, Token: "tok"})
	p.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	err := p.AppendSummary(context.Background(), "4423704", "Summary", "<p>fresh</p>")
	require.NoError(t, err)
	require.NotNil(t, *updated)

	body := (*updated)["body"].(map[string]interface{})["storage"].(map[string]interface{})["value"].(string)
	assert.True(t, strings.HasPrefix(body, "<h3>Summary - 2025-03-01 12:00:00</h3>"))
	assert.True(t, strings.HasSuffix(body, "<p>old content</p>"))

	version := (*updated)["version"].(map[string]interface{})["number"].(float64)
	assert.Equal(t, float64(8), version)
}

func TestAppendSummaryPropagatesFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewWithConfig(WikiPublisherConfig{BaseURL: server.URL})

	err := p.AppendSummary(context.Background(), "4423704", "Summary", "x")
	assert.Error(t, err)
}
