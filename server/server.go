package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
	"github.com/xhad/scribe/pkg/generate"
	"github.com/xhad/scribe/pkg/revise"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Command is one inbound user request. Text carries the argument for
// generate/get/ask; update uses From and To.
type Command struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

type Reply struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type ArticleWriter interface {
	Write(ctx context.Context, topic string) ([]models.Article, error)
}

type Reviser interface {
	Apply(ctx context.Context, fromText, toText string) (models.Record, error)
}

type Config struct {
	Addr string
}

// Server dispatches user commands to the pipeline and store. Every command
// is acknowledged synchronously; the work itself runs in its own goroutine
// and reports back on the same connection.
type Server struct {
	config   Config
	store    types.VectorStore
	answerer Answerer
	articles ArticleWriter
	reviser  Reviser
}

func New(config Config, store types.VectorStore, answerer Answerer, articles ArticleWriter, reviser Reviser) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	return &Server{
		config:   config,
		store:    store,
		answerer: answerer,
		articles: articles,
		reviser:  reviser,
	}
}

// Handler returns the HTTP mux serving the websocket endpoint and health
// check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (s *Server) ListenAndServe() error {
	log.Printf("server: listening on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

// wsConn serializes writes; gorilla/websocket allows one concurrent writer
// and command results arrive from several goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msgType, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(Reply{Type: msgType, Content: content}); err != nil {
		log.Printf("server: error sending message: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	wc := &wsConn{conn: conn}
	ctx := r.Context()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("server: error reading command: %v", err)
			}
			return
		}

		s.dispatch(ctx, wc, cmd)
	}
}

// dispatch acknowledges the command, then runs it asynchronously so the read
// loop keeps accepting commands while work is in flight.
func (s *Server) dispatch(ctx context.Context, wc *wsConn, cmd Command) {
	switch cmd.Action {
	case "generate":
		topic := strings.TrimSpace(cmd.Text)
		if topic == "" {
			wc.send("error", "Please provide a topic. Example: generate remittance")
			return
		}
		wc.send("ack", fmt.Sprintf("Generating articles for topic: %s", topic))
		go s.runGenerate(ctx, wc, topic)

	case "get":
		query := strings.TrimSpace(cmd.Text)
		if query == "" {
			wc.send("error", "Please provide a query. Example: get onboarding")
			return
		}
		wc.send("ack", fmt.Sprintf("Getting information for: %s", query))
		go s.runGet(ctx, wc, query)

	case "update":
		if strings.TrimSpace(cmd.From) == "" || strings.TrimSpace(cmd.To) == "" {
			wc.send("error", "Both 'from' and 'to' are required")
			return
		}
		wc.send("ack", "Updating stored content")
		go s.runUpdate(ctx, wc, cmd.From, cmd.To)

	case "ask":
		question := strings.TrimSpace(cmd.Text)
		if question == "" {
			wc.send("error", "Please provide a question. Example: ask what is scribe?")
			return
		}
		wc.send("ack", fmt.Sprintf("Answering: %s", question))
		go s.runAsk(ctx, wc, question)

	default:
		wc.send("error", fmt.Sprintf("Unknown action %q", cmd.Action))
	}
}

func (s *Server) runGenerate(ctx context.Context, wc *wsConn, topic string) {
	articles, err := s.articles.Write(ctx, topic)
	if errors.Is(err, generate.ErrNoContext) {
		wc.send("error", fmt.Sprintf("No relevant context found for topic %q", topic))
		return
	}
	if err != nil {
		wc.send("error", fmt.Sprintf("Article generation failed: %v", err))
		return
	}

	for _, article := range articles {
		wc.send("article", fmt.Sprintf("*%s* (%s)\n%s", article.Title, article.Kind, article.Body))
	}
}

func (s *Server) runGet(ctx context.Context, wc *wsConn, query string) {
	records, err := s.store.Query(ctx, query, 3)
	if err != nil {
		wc.send("error", fmt.Sprintf("Query failed: %v", err))
		return
	}
	if len(records) == 0 {
		wc.send("result", fmt.Sprintf("No results for %q", query))
		return
	}

	contents := make([]string, len(records))
	for i, rec := range records {
		contents[i] = rec.Content
	}
	wc.send("result", fmt.Sprintf("Results for %q:\n%s", query, strings.Join(contents, "\n---\n")))
}

func (s *Server) runUpdate(ctx context.Context, wc *wsConn, from, to string) {
	replaced, err := s.reviser.Apply(ctx, from, to)
	if errors.Is(err, revise.ErrNoMatch) {
		wc.send("result", "No matching record found for update.")
		return
	}
	if err != nil {
		wc.send("error", fmt.Sprintf("Failed to update: %v", err))
		return
	}

	wc.send("result", fmt.Sprintf("Replaced %q with %q", replaced.Content, to))
}

func (s *Server) runAsk(ctx context.Context, wc *wsConn, question string) {
	answer, err := s.answerer.Answer(ctx, question)
	if err != nil {
		wc.send("error", fmt.Sprintf("Failed to answer: %v", err))
		return
	}
	wc.send("answer", answer)
}
