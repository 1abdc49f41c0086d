package engine

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/avessey/litscan/internal/config"
)

// Provider is the interface for analysis engine backends.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	IsConfigured() bool
}

// CreateProvider creates an analysis engine provider based on configuration.
// Gemini is preferred; OpenAI serves as the fallback when Gemini is not
// configured.
func CreateProvider(cfg config.Engine, timeout time.Duration) Provider {
	if strings.ToLower(cfg.Provider) != "openai" {
		p := NewGeminiProvider(cfg.GeminiModel, cfg.GeminiKeyEnv, timeout)
		if p.IsConfigured() {
			log.Printf("Using Gemini with model: %s", cfg.GeminiModel)
			return p
		}
		log.Println("Gemini not configured, trying OpenAI fallback...")
	}

	p := NewOpenAIProvider(cfg.OpenAIModel, cfg.OpenAIKeyEnv, timeout)
	if p.IsConfigured() {
		log.Printf("Using OpenAI with model: %s", cfg.OpenAIModel)
		return p
	}

	log.Println("No analysis engine available. Set GEMINI_API_KEY or OPENAI_API_KEY.")
	return nil
}
