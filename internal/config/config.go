package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvAPIKey names the environment variable holding the API credential.
const EnvAPIKey = "OPENAI_API_KEY"

// Defaults for the generation knobs forwarded to the completion endpoint.
const (
	DefaultModel        = "gpt-4o-mini"
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1000
	DefaultSystemPrompt = "You are a helpful and friendly AI assistant. Provide clear, concise, and accurate responses."
)

// LoadDotenv merges a .env file from the working directory into the process
// environment. Variables already set win; a missing file is not an error.
func LoadDotenv() {
	_ = godotenv.Load()
}

// LoadAPIKey reads the API key from the environment. Unset, empty and
// whitespace-only values report ok=false instead of an error so callers can
// render setup instructions rather than crash.
func LoadAPIKey() (string, bool) {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return "", false
	}
	return key, true
}

// GenDefaults are the per-turn generation parameters resolved at startup.
type GenDefaults struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Generation resolves generation parameters from the environment. Out-of-range
// values fall back to the defaults and are reported as warnings: temperature
// must sit in [0, 2], max tokens must be positive.
func Generation() (GenDefaults, []string) {
	var warnings []string

	g := GenDefaults{
		SystemPrompt: Getenv("CHAT_SYSTEM_PROMPT", DefaultSystemPrompt),
		Temperature:  envFloat("CHAT_TEMPERATURE", DefaultTemperature),
		MaxTokens:    envInt("CHAT_MAX_TOKENS", DefaultMaxTokens),
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		warnings = append(warnings, fmt.Sprintf("temperature %.2f is outside [0.0, 2.0]; using %.2f", g.Temperature, DefaultTemperature))
		g.Temperature = DefaultTemperature
	}
	if g.MaxTokens <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_tokens %d is not positive; using %d", g.MaxTokens, DefaultMaxTokens))
		g.MaxTokens = DefaultMaxTokens
	}
	if strings.TrimSpace(g.SystemPrompt) == "" {
		warnings = append(warnings, "system prompt is blank; using the default")
		g.SystemPrompt = DefaultSystemPrompt
	}
	return g, warnings
}

// Getenv returns the variable's value, or def when unset or empty.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
