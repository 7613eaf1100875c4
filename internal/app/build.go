// Package app wires the turn pipeline's collaborators together: storage,
// history cache, LLM/TTS providers and the HTTP gateway, mirroring the
// grounding repo's single Build entrypoint.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/turngate-dev/turngate/internal/config"
	"github.com/turngate-dev/turngate/internal/domain"
	"github.com/turngate-dev/turngate/internal/gateway"
	"github.com/turngate-dev/turngate/internal/historycache"
	"github.com/turngate-dev/turngate/internal/llmstream"
	"github.com/turngate-dev/turngate/internal/observability"
	"github.com/turngate-dev/turngate/internal/orchestrator"
	"github.com/turngate-dev/turngate/internal/storage"
	"github.com/turngate-dev/turngate/internal/ttsclient"
	"github.com/turngate-dev/turngate/internal/turnservice"
)

// BuildResult bundles everything main needs to run and shut down the
// service.
type BuildResult struct {
	Config  config.Config
	API     *gateway.Server
	Store   storage.Store
	Metrics *observability.Metrics

	// Cleanup releases external resources (database connections, cache
	// clients) on shutdown.
	Cleanup func() error
}

// Build constructs the full dependency graph for the turn pipeline from
// cfg.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("store init failed: %w", err)
	}

	var cacheCleanup func() error
	var external historycache.ExternalCache
	if strings.TrimSpace(cfg.CacheURL) != "" {
		redisCache, err := historycache.NewRedisCache(cfg.CacheURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		external = redisCache
		cacheCleanup = redisCache.Close
	} else {
		external = historycache.NewLocalCache()
	}
	history := historycache.New(external, cfg.MaxTurns, cfg.CacheTTLSeconds)

	factory := newOrchestratorFactory(cfg, history)
	turns := turnservice.New(store, factory, metrics)

	api := gateway.New(cfg, store, turns, metrics)

	cleanup := func() error {
		var errs []string
		if cacheCleanup != nil {
			if err := cacheCleanup(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Store:   store,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}

// newOrchestratorFactory builds the per-turn Orchestrator factory, selecting
// LLM and TTS providers once at startup and binding each fresh Orchestrator
// to the requesting character's model, voice and system prompt.
func newOrchestratorFactory(cfg config.Config, history *historycache.Cache) turnservice.OrchestratorFactory {
	var llm llmstream.Streamer
	switch strings.ToLower(cfg.LLMProvider) {
	case "openai":
		llm = llmstream.NewRemoteStreamer(cfg.OpenAIChatCompletionsURL, cfg.OpenAIAPIKey, cfg.OpenAILLMModel, cfg.OpenAILLMTemperature, cfg.OpenAILLMMaxTokens)
	default:
		llm = llmstream.NewMockStreamer()
	}

	var tts ttsclient.Client
	switch strings.ToLower(cfg.TTSProvider) {
	case "openai":
		tts = ttsclient.NewRemoteClient(cfg.TTSURL, cfg.OpenAIAPIKey, cfg.OpenAITTSModel, cfg.OpenAITTSVoice)
	default:
		tts = ttsclient.NewDummySynthesizer()
	}

	return func(c domain.Character) *orchestrator.Orchestrator {
		turnTTS := tts
		if remote, ok := tts.(*ttsclient.RemoteClient); ok && strings.TrimSpace(c.Voice) != "" {
			turnTTS = ttsclient.NewRemoteClient(remote.URL, remote.APIKey, remote.Model, c.Voice)
		}
		return &orchestrator.Orchestrator{
			History:      history,
			LLM:          llm,
			TTS:          turnTTS,
			SystemPrompt: c.SystemPrompt,
			Model:        c.Model,
		}
	}
}
