package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
)

var urlPattern = regexp.MustCompile(`https?://[^\s>]+`)

type ChatSourceConfig struct {
	BaseURL string
	Token   string
	Channel string
	Window  time.Duration // trailing window, default 7 days
	Timeout time.Duration
}

// ChatSource fetches recent channel history from a chat API, keeping only
// messages that mention the bot, and expands referenced links and uploaded
// files into their own documents.
type ChatSource struct {
	config ChatSourceConfig
	client *http.Client
	links  *LinkFetcher

	botID string
}

var _ types.DocumentSource = (*ChatSource)(nil)

func NewChatSource(config ChatSourceConfig, links *LinkFetcher) *ChatSource {
	if config.Window == 0 {
		config.Window = 7 * 24 * time.Hour
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &ChatSource{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		links:  links,
	}
}

func (s *ChatSource) Name() string { return "chat" }

type chatMessage struct {
	Text  string `json:"text"`
	Files []struct {
		Mimetype   string `json:"mimetype"`
		URLPrivate string `json:"url_private"`
	} `json:"files"`
}

type historyResponse struct {
	OK               bool          `json:"ok"`
	Error            string        `json:"error"`
	Messages         []chatMessage `json:"messages"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type authResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	UserID string `json:"user_id"`
}

// Fetch pages through the channel's trailing window and returns one document
// per bot-mentioning message, plus documents for any linked pages and
// text-like attachments.
func (s *ChatSource) Fetch(ctx context.Context) ([]models.Document, error) {
	botID, err := s.botUserID(ctx)
	if err != nil {
		return nil, err
	}
	mention := "<@" + botID + ">"
	oldest := time.Now().Add(-s.config.Window).Unix()

	var docs []models.Document
	cursor := ""

	for {
		page, err := s.historyPage(ctx, cursor, oldest)
		if err != nil {
			return nil, err
		}

		for _, msg := range page.Messages {
			if !strings.Contains(msg.Text, mention) {
				continue
			}

			docs = append(docs, models.Document{
				Source:   models.SourceChat,
				Content:  msg.Text,
				Metadata: map[string]interface{}{"channel": s.config.Channel},
			})

			for _, link := range urlPattern.FindAllString(msg.Text, -1) {
				content, err := s.links.FetchLinkedContent(ctx, link)
				if err != nil {
					log.Printf("chat: failed to fetch linked content from %s: %v", link, err)
					continue
				}
				if content != "" {
					docs = append(docs, models.Document{
						Source:   models.SourceLink,
						Content:  content,
						Metadata: map[string]interface{}{"url": link},
					})
				}
			}

			for _, file := range msg.Files {
				if !strings.HasPrefix(file.Mimetype, "application") && !strings.HasPrefix(file.Mimetype, "text") {
					continue
				}
				content, err := s.links.FetchAttachment(ctx, file.URLPrivate, s.config.Token)
				if err != nil {
					log.Printf("chat: failed to fetch attachment %s: %v", file.URLPrivate, err)
					continue
				}
				if content != "" {
					docs = append(docs, models.Document{
						Source:   models.SourceAttachment,
						Content:  content,
						Metadata: map[string]interface{}{"url": file.URLPrivate},
					})
				}
			}
		}

		cursor = page.ResponseMetadata.NextCursor
		if cursor == "" {
			break
		}
	}

	return docs, nil
}

func (s *ChatSource) botUserID(ctx context.Context) (string, error) {
	if s.botID != "" {
		return s.botID, nil
	}

	var auth authResponse
	if err := s.getJSON(ctx, s.config.BaseURL+"/auth.test", nil, &auth); err != nil {
		return "", fmt.Errorf("auth check failed: %w", err)
	}
	if !auth.OK {
		return "", fmt.Errorf("auth check rejected: %s", auth.Error)
	}

	s.botID = auth.UserID
	return s.botID, nil
}

func (s *ChatSource) historyPage(ctx context.Context, cursor string, oldest int64) (*historyResponse, error) {
	params := url.Values{
		"channel": {s.config.Channel},
		"limit":   {"200"},
		"oldest":  {strconv.FormatInt(oldest, 10)},
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var page historyResponse
	if err := s.getJSON(ctx, s.config.BaseURL+"/conversations.history", params, &page); err != nil {
		return nil, fmt.Errorf("history fetch failed: %w", err)
	}
	if !page.OK {
		return nil, fmt.Errorf("history fetch rejected: %s", page.Error)
	}
	return &page, nil
}

func (s *ChatSource) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if params != nil {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d from %s", resp.StatusCode, endpoint)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
