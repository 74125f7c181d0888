package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/xhad/scribe/internal/types"
)

type WikiPublisherConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// WikiPublisher appends generated summaries to wiki pages. New sections are
// prepended so the freshest summary reads first; prior content is never
// overwritten.
type WikiPublisher struct {
	config WikiPublisherConfig
	client *http.Client
	now    func() time.Time
}

var _ types.Publisher = (*WikiPublisher)(nil)

func NewWithConfig(config WikiPublisherConfig) *WikiPublisher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &WikiPublisher{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		now:    time.Now,
	}
}

type pageResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

func (p *WikiPublisher) GetPage(ctx context.Context, id string) (types.Page, error) {
	endpoint := fmt.Sprintf("%s/rest/api/content/%s?expand=body.storage,version", p.config.BaseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.Page{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.config.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		return types.Page{}, fmt.Errorf("page fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Page{}, fmt.Errorf("page fetch failed: status %d", resp.StatusCode)
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return types.Page{}, fmt.Errorf("page decode failed: %w", err)
	}

	return types.Page{
		Title:   page.Title,
		Body:    page.Body.Storage.Value,
		Version: page.Version.Number,
	}, nil
}

// AppendSummary prepends a timestamped section holding body to the page and
// bumps its version.
func (p *WikiPublisher) AppendSummary(ctx context.Context, id, heading, body string) error {
	page, err := p.GetPage(ctx, id)
	if err != nil {
		return err
	}

	timestamp := p.now().Format("2006-01-02 15:04:05")
	section := fmt.Sprintf("<h3>%s - %s</h3><p>%s</p>", heading, timestamp, body)
	updated := section + page.Body

	payload := map[string]interface{}{
		"id":    id,
		"type":  "page",
		"title": page.Title,
		"version": map[string]int{
			"number": page.Version + 1,
		},
		"body": map[string]interface{}{
			"storage": map[string]string{
				"value":          updated,
				"representation": "storage",
			},
		},
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/rest/api/content/%s", p.config.BaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.config.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("page update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("page update failed: status %d", resp.StatusCode)
	}

	return nil
}
