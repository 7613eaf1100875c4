// Package config loads runtime settings for the turngate service from the
// environment, following the grounding repo's hand-rolled parsing style
// (no config/flag library).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the turn-pipeline service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool
	LogLevel         string
	LogJSON          bool

	DatabaseURL string
	CacheURL    string

	MaxTurns        int
	CacheTTLSeconds int

	LLMProvider            string
	OpenAIAPIKey           string
	OpenAILLMModel         string
	OpenAILLMTemperature   float64
	OpenAILLMMaxTokens     int
	OpenAILLMSystemPrompt  string
	OpenAIChatCompletionsURL string

	TTSProvider     string
	TTSURL          string
	OpenAITTSModel  string
	OpenAITTSVoice  string
	TTSSampleRate   int
	TTSMaxTextLen   int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "turngate"),
		AllowAnyOrigin:           false,
		LogLevel:                 envOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		CacheURL:                 stringsTrimSpace("CACHE_URL"),
		MaxTurns:                 10,
		CacheTTLSeconds:          86400,
		LLMProvider:              envOrDefault("LLM_PROVIDER", "mock"),
		OpenAIAPIKey:             stringsTrimSpace("OPENAI_API_KEY"),
		OpenAILLMModel:           envOrDefault("OPENAI_LLM_MODEL", "gpt-4o-mini"),
		OpenAILLMTemperature:     0.8,
		OpenAILLMMaxTokens:       512,
		OpenAILLMSystemPrompt:    envOrDefault("OPENAI_LLM_SYSTEM_PROMPT", "You are a helpful assistant."),
		OpenAIChatCompletionsURL: envOrDefault("OPENAI_CHAT_COMPLETIONS_URL", "https://api.openai.com/v1/chat/completions"),
		TTSProvider:              envOrDefault("TTS_PROVIDER", "dummy"),
		TTSURL:                   stringsTrimSpace("TTS_URL"),
		OpenAITTSModel:           envOrDefault("OPENAI_TTS_MODEL", "tts-1"),
		OpenAITTSVoice:           envOrDefault("OPENAI_TTS_VOICE", "alloy"),
		TTSSampleRate:            24000,
		TTSMaxTextLen:            2000,
		ShutdownTimeout:          15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.LogJSON, err = boolFromEnv("LOG_JSON", false)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTurns, err = intFromEnv("MAX_TURNS", cfg.MaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheTTLSeconds, err = intFromEnv("CACHE_TTL_SECONDS", cfg.CacheTTLSeconds)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAILLMTemperature, err = floatFromEnv("OPENAI_LLM_TEMPERATURE", cfg.OpenAILLMTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAILLMMaxTokens, err = intFromEnv("OPENAI_LLM_MAX_TOKENS", cfg.OpenAILLMMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSSampleRate, err = intFromEnv("TTS_SAMPLE_RATE", cfg.TTSSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSMaxTextLen, err = intFromEnv("TTS_MAX_TEXT_LEN", cfg.TTSMaxTextLen)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(cfg.LLMProvider) {
	case "mock", "openai":
	default:
		return Config{}, fmt.Errorf("LLM_PROVIDER must be one of mock|openai, got %q", cfg.LLMProvider)
	}
	switch strings.ToLower(cfg.TTSProvider) {
	case "dummy", "openai":
	default:
		return Config{}, fmt.Errorf("TTS_PROVIDER must be one of dummy|openai, got %q", cfg.TTSProvider)
	}
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
	}
	if cfg.MaxTurns <= 0 {
		return Config{}, fmt.Errorf("MAX_TURNS must be positive")
	}
	if cfg.CacheTTLSeconds <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if cfg.TTSSampleRate <= 0 {
		return Config{}, fmt.Errorf("TTS_SAMPLE_RATE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
