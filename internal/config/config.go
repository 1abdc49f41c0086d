package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

//go:embed queries.txt
var DefaultQueriesTxt []byte

type Config struct {
	Source   Source   `yaml:"source"`
	Feeds    []Feed   `yaml:"feeds"`
	Engine   Engine   `yaml:"engine"`
	Store    Store    `yaml:"store"`
	Queries  Queries  `yaml:"queries"`
	Pacing   Pacing   `yaml:"pacing"`
	Schedule Schedule `yaml:"schedule"`
	Output   Output   `yaml:"output"`
}

// Source configures the PubMed E-utilities client.
type Source struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	ResultsPerQuery int    `yaml:"results_per_query"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// Engine configures the analysis engine providers.
type Engine struct {
	Provider     string `yaml:"provider"`
	GeminiModel  string `yaml:"gemini_model"`
	GeminiKeyEnv string `yaml:"gemini_api_key_env"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIKeyEnv string `yaml:"openai_api_key_env"`
}

// Store configures the Notion knowledge store.
type Store struct {
	BaseURL        string `yaml:"base_url"`
	TokenEnv       string `yaml:"token_env"`
	DatabaseIDEnv  string `yaml:"database_id_env"`
	StrictFlagging bool   `yaml:"strict_flagging"`
}

type Queries struct {
	File string `yaml:"file"`
}

// Pacing holds the courtesy delays between external calls and the per-call
// timeout. The delays respect third-party rate limits; they are not a
// correctness requirement.
type Pacing struct {
	FetchDelayMS   int `yaml:"fetch_delay_ms"`
	AnalyzeDelayMS int `yaml:"analyze_delay_ms"`
	WriteDelayMS   int `yaml:"write_delay_ms"`
	CallTimeoutSec int `yaml:"call_timeout_sec"`
}

func (p Pacing) FetchDelay() time.Duration {
	return time.Duration(p.FetchDelayMS) * time.Millisecond
}

func (p Pacing) AnalyzeDelay() time.Duration {
	return time.Duration(p.AnalyzeDelayMS) * time.Millisecond
}

func (p Pacing) WriteDelay() time.Duration {
	return time.Duration(p.WriteDelayMS) * time.Millisecond
}

func (p Pacing) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSec) * time.Second
}

type Schedule struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

func (s Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

// ConfigDir returns the XDG config directory for litscan.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "litscan")
}

// DataDir returns the XDG data directory for litscan.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "litscan")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/litscan/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'litscan init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Source: Source{
			BaseURL:         "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			APIKeyEnv:       "PUBMED_API_KEY",
			ResultsPerQuery: 5,
		},
		Engine: Engine{
			Provider:     "gemini",
			GeminiModel:  "gemini-2.0-flash-lite",
			GeminiKeyEnv: "GEMINI_API_KEY",
			OpenAIModel:  "gpt-4o-mini",
			OpenAIKeyEnv: "OPENAI_API_KEY",
		},
		Store: Store{
			BaseURL:       "https://api.notion.com",
			TokenEnv:      "NOTION_TOKEN",
			DatabaseIDEnv: "NOTION_DATABASE_ID",
		},
		Queries: Queries{
			File: filepath.Join(ConfigDir(), "queries.txt"),
		},
		Pacing: Pacing{
			FetchDelayMS:   350,
			AnalyzeDelayMS: 1000,
			WriteDelayMS:   500,
			CallTimeoutSec: 15,
		},
		Schedule: Schedule{IntervalMinutes: 60},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
