package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"podscribe/internal/budget"
	"podscribe/internal/config"
	"podscribe/internal/debuglog"
	"podscribe/internal/jobs"
	"podscribe/internal/logging"
	"podscribe/internal/mediaextract"
	"podscribe/internal/orchestrator"
	"podscribe/internal/providers"
	"podscribe/internal/quota"
	"podscribe/internal/search"
	"podscribe/internal/search/youtube"
	"podscribe/internal/services/llm"
	"podscribe/internal/services/speech"
	"podscribe/internal/summarize"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime bundles the assembled pipeline components a command needs.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobs.Store
	ledger    *quota.Ledger
	debug     *debuglog.Log
	budget    budget.ProcessingBudget
	orch      *orchestrator.Orchestrator
	resolver  *search.Resolver
	lock      *flock.Flock
	closeFns  []func() error
	lockTaken bool
}

// buildRuntime assembles the full pipeline from configuration. Callers must
// call close when done.
func (c *commandContext) buildRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "podscribe.log")},
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger}

	store, err := jobs.Open(filepath.Join(cfg.Paths.DataDir, "jobs.db"))
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	rt.store = store
	rt.closeFns = append(rt.closeFns, store.Close)

	rt.ledger = quota.NewLedger(map[string]int{
		providers.VideoInfoServiceName: cfg.VideoInfo.MonthlyLimit,
		providers.SpeechServiceName:    cfg.Speech.MonthlyLimit,
	}, logger)

	debugStore, err := buildDebugStore(cfg)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.debug = debuglog.New(cfg.Debug.Enabled, debugStore, logger)

	rt.budget = budget.Resolve(cfg.Budget.Tier, logger)

	chain, extractor := buildProviderChain(cfg, rt.budget, rt.ledger, rt.debug, logger)

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	summarizer := summarize.New(llmClient, cfg.LLM.MaxChunkChars, cfg.LLM.MaxChunks, logger)

	// Dry-run validation probes the player API directly, with no transcriber
	// attached, so nothing is extracted.
	prober := providers.NewInnertubeProvider(
		cfg.Providers.InnertubeBaseURL, cfg.Providers.CaptionsLanguage, nil, nil)

	rt.orch = orchestrator.New(chain, summarizer, store, rt.budget, logger,
		orchestrator.WithDebugLog(rt.debug),
		orchestrator.WithDecoderProbe(extractor.IsDecoderAvailable, speechOnly(cfg.Providers.Order)),
		orchestrator.WithMetadataProber(prober),
	)

	if cfg.Search.APIKey != "" {
		indexClient, err := youtube.New(cfg.Search.APIKey, cfg.Search.BaseURL)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("build search client: %w", err)
		}
		rt.resolver = search.NewResolver(indexClient, cfg.Search.MaxResults, cfg.Search.DateBufferDays, logger)
	} else {
		rt.resolver = search.NewResolver(nil, cfg.Search.MaxResults, cfg.Search.DateBufferDays, logger)
	}

	rt.lock = flock.New(filepath.Join(cfg.Paths.DataDir, "podscribe.lock"))
	return rt, nil
}

// acquireLock takes the single-instance data-dir lock. Commands that mutate
// shared state call this before running the pipeline.
func (rt *runtime) acquireLock() error {
	locked, err := rt.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire data lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another podscribe instance holds %s", rt.lock.Path())
	}
	rt.lockTaken = true
	return nil
}

func (rt *runtime) close() {
	if rt.lockTaken {
		_ = rt.lock.Unlock()
	}
	for _, fn := range rt.closeFns {
		_ = fn()
	}
}

func buildDebugStore(cfg *config.Config) (debuglog.ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Debug.Backend)) {
	case "supabase":
		return debuglog.NewSupabaseStore(cfg.Debug.SupabaseURL, cfg.Debug.SupabaseKey, cfg.Debug.Bucket)
	default:
		return debuglog.NewFSStore(filepath.Join(cfg.Paths.DataDir, "debug"))
	}
}

func buildProviderChain(cfg *config.Config, processingBudget budget.ProcessingBudget, ledger *quota.Ledger, debug *debuglog.Log, logger *slog.Logger) (*providers.Chain, *mediaextract.Extractor) {
	extractor := mediaextract.New(cfg.FFmpeg.Binary)
	recognizer := speech.NewClient(speech.Config{
		APIKey:         cfg.Speech.APIKey,
		BaseURL:        cfg.Speech.BaseURL,
		Model:          cfg.Speech.Model,
		MaxUploadBytes: cfg.Speech.MaxUploadBytes,
		TimeoutSeconds: cfg.Speech.TimeoutSeconds,
	})
	transcriber := providers.NewSegmentTranscriber(extractor, recognizer, processingBudget, ledger, logger)

	ordered := make([]providers.Provider, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		switch name {
		case "captions":
			ordered = append(ordered, providers.NewCaptionsProvider(
				cfg.Providers.InnertubeBaseURL, cfg.Providers.CaptionsLanguage, nil))
		case "innertube":
			ordered = append(ordered, providers.NewInnertubeProvider(
				cfg.Providers.InnertubeBaseURL, cfg.Providers.CaptionsLanguage, nil, transcriber))
		case "videoinfo":
			if cfg.VideoInfo.BaseURL == "" {
				continue
			}
			ordered = append(ordered, providers.NewVideoInfoProvider(
				cfg.VideoInfo.APIKey, cfg.VideoInfo.BaseURL, nil, ledger))
		case "speech":
			ordered = append(ordered, providers.NewSpeechProvider(transcriber))
		}
	}

	chain := providers.NewChain(ordered, ledger, logger,
		providers.WithAttemptTimeout(time.Duration(cfg.Providers.AttemptTimeoutSeconds)*time.Second),
		providers.WithDebugLog(debug),
	)
	return chain, extractor
}

// speechOnly reports whether every configured provider needs the decoder, in
// which case a missing binary should fail the run up front.
func speechOnly(order []string) bool {
	if len(order) == 0 {
		return false
	}
	for _, name := range order {
		if name != "speech" {
			return false
		}
	}
	return true
}
