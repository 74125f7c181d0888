package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/scribe/internal/models"
	"github.com/xhad/scribe/internal/types"
	"github.com/xhad/scribe/pkg/config"
)

type stubSource struct {
	name string
	docs []models.Document
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context) ([]models.Document, error) {
	return s.docs, s.err
}

type recordingSummarizer struct {
	texts []string
}

func (r *recordingSummarizer) Summarize(_ context.Context, texts []string, _ string) (string, error) {
	r.texts = texts
	return "digest", nil
}

type recordingPublisher struct {
	pageID  string
	heading string
	body    string
	calls   int
}

func (r *recordingPublisher) GetPage(context.Context, string) (types.Page, error) {
	return types.Page{}, nil
}

func (r *recordingPublisher) AppendSummary(_ context.Context, id, heading, body string) error {
	r.calls++
	r.pageID = id
	r.heading = heading
	r.body = body
	return nil
}

func TestSummaryJobCombinesSources(t *testing.T) {
	chat := &stubSource{name: "chat", docs: []models.Document{
		{Source: models.SourceChat, Content: "chat message"},
	}}
	wiki := &stubSource{name: "wiki", docs: []models.Document{
		{Source: models.SourceWiki, Content: "wiki page"},
	}}
	sum := &recordingSummarizer{}
	pub := &recordingPublisher{}

	job := summaryJob("general-summary", []types.DocumentSource{chat, wiki}, sum, pub, "4423704", "General Summary")
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"chat message", "wiki page"}, sum.texts)
	assert.Equal(t, "4423704", pub.pageID)
	assert.Equal(t, "General Summary", pub.heading)
	assert.Equal(t, "digest", pub.body)
}

func TestSummaryJobSourceIsolation(t *testing.T) {
	down := &stubSource{name: "chat", err: errors.New("unreachable")}
	up := &stubSource{name: "wiki", docs: []models.Document{
		{Source: models.SourceWiki, Content: "still here"},
	}}
	sum := &recordingSummarizer{}
	pub := &recordingPublisher{}

	job := summaryJob("general-summary", []types.DocumentSource{down, up}, sum, pub, "4423704", "General Summary")
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []string{"still here"}, sum.texts)
	assert.Equal(t, 1, pub.calls)
}

func TestSummaryJobNothingToPublish(t *testing.T) {
	src := &stubSource{name: "chat"}
	pub := &recordingPublisher{}

	job := summaryJob("support-summary", []types.DocumentSource{src}, &recordingSummarizer{}, pub, "5013506", "Support Summary")
	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, pub.calls)
}

func TestSummarySourceSplit(t *testing.T) {
	cfg := &config.Config{}
	cfg.Chat.BaseURL = "https://chat.example.com/api"
	cfg.Chat.Token = "xoxb-general"
	cfg.Chat.Channel = "C-GENERAL"
	cfg.Chat.SupportToken = "xoxb-support"
	cfg.Chat.SupportChannel = "C-SUPPORT"
	cfg.Wiki.BaseURL = "https://wiki.example.com"
	cfg.Wiki.Space = "ENG"

	general := generalSummarySources(cfg)
	require.Len(t, general, 2)
	assert.Equal(t, "chat", general[0].Name())
	assert.Equal(t, "wiki", general[1].Name())

	support := supportSummarySources(cfg)
	require.Len(t, support, 1)
	assert.Equal(t, "chat", support[0].Name())
}

func TestSupportSummaryRequiresChannel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Chat.BaseURL = "https://chat.example.com/api"
	cfg.Chat.Token = "xoxb-general"
	cfg.Chat.Channel = "C-GENERAL"

	assert.Empty(t, supportSummarySources(cfg))
}
