package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	EmbedModel  string  `yaml:"embed_model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
	VectorDim int    `yaml:"vector_dim"`
}

type ProcessorConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
}

type ChatConfig struct {
	BaseURL    string  `yaml:"base_url"`
	Token      string  `yaml:"token"`
	Channel    string  `yaml:"channel"`
	WindowDays int     `yaml:"window_days"`
	RateLimit  float64 `yaml:"rate_limit"`

	// The support summary reads a separately-tokened channel so the two
	// published digests cover different conversations.
	SupportToken   string `yaml:"support_token"`
	SupportChannel string `yaml:"support_channel"`
}

type WikiConfig struct {
	BaseURL   string `yaml:"base_url"`
	Token     string `yaml:"token"`
	Space     string `yaml:"space"`
	PageLimit int    `yaml:"page_limit"`
}

type PublishConfig struct {
	GeneralPageID string `yaml:"general_page_id"`
	SupportPageID string `yaml:"support_page_id"`
}

type ReviseConfig struct {
	MinSimilarity float64 `yaml:"min_similarity"`
}

type SchedulerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Processor ProcessorConfig `yaml:"processor"`
	Chat      ChatConfig      `yaml:"chat"`
	Wiki      WikiConfig      `yaml:"wiki"`
	Publish   PublishConfig   `yaml:"publish"`
	Revise    ReviseConfig    `yaml:"revise"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Server    ServerConfig    `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/scribe/config.yaml"),
			"/etc/scribe/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 300
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 70
	}
	if config.Processor.BatchSize == 0 {
		config.Processor.BatchSize = 166
	}

	if config.Chat.WindowDays == 0 {
		config.Chat.WindowDays = 7
	}
	if config.Chat.RateLimit == 0 {
		config.Chat.RateLimit = 2.0
	}

	if config.Wiki.PageLimit == 0 {
		config.Wiki.PageLimit = 100
	}

	if config.Revise.MinSimilarity == 0 {
		config.Revise.MinSimilarity = 0.2
	}

	if config.Scheduler.IntervalSeconds == 0 {
		config.Scheduler.IntervalSeconds = 60
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if token := os.Getenv("CHAT_TOKEN"); token != "" {
		config.Chat.Token = token
	}
	if token := os.Getenv("CHAT_SUPPORT_TOKEN"); token != "" {
		config.Chat.SupportToken = token
	}
	if token := os.Getenv("WIKI_TOKEN"); token != "" {
		config.Wiki.Token = token
	}
}
