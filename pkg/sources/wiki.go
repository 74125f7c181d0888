package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
)

type WikiSourceConfig struct {
	BaseURL   string
	Token     string
	Space     string
	PageLimit int
	Timeout   time.Duration
}

// WikiSource fetches the most recent pages of a wiki space. Page bodies come
// back as storage-format markup; normalization strips it downstream.
type WikiSource struct {
	config WikiSourceConfig
	client *http.Client
}

var _ types.DocumentSource = (*WikiSource)(nil)

func NewWikiSource(config WikiSourceConfig) *WikiSource {
	if config.PageLimit == 0 {
		config.PageLimit = 100
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &WikiSource{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

func (s *WikiSource) Name() string { return "wiki" }

type wikiPageResult struct {
	Results []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Body  struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
	} `json:"results"`
}

func (s *WikiSource) Fetch(ctx context.Context) ([]models.Document, error) {
	params := url.Values{
		"spaceKey": {s.config.Space},
		"limit":    {strconv.Itoa(s.config.PageLimit)},
		"expand":   {"body.storage"},
	}

	endpoint := s.config.BaseURL + "/rest/api/content?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiki fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wiki fetch failed: status %d", resp.StatusCode)
	}

	var result wikiPageResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("wiki response decode failed: %w", err)
	}

	docs := make([]models.Document, 0, len(result.Results))
	for _, page := range result.Results {
		docs = append(docs, models.Document{
			ID:       page.ID,
			Source:   models.SourceWiki,
			Title:    page.Title,
			Content:  page.Body.Storage.Value,
			Metadata: map[string]interface{}{"space": s.config.Space},
		})
	}

	return docs, nil
}
