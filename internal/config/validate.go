package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownProviders = map[string]struct{}{
	"captions":  {},
	"innertube": {},
	"videoinfo": {},
	"speech":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateDebug(); err != nil {
		return err
	}
	if err := c.validateBudget(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProviders() error {
	seen := make(map[string]struct{}, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := knownProviders[name]; !ok {
			return fmt.Errorf("providers.order: unknown provider %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("providers.order: provider %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	// An unconfigured videoinfo entry is skipped at chain build time as long
	// as another provider can still serve the job.
	if contains(c.Providers.Order, "videoinfo") && c.VideoInfo.BaseURL == "" && len(c.Providers.Order) == 1 {
		return errors.New("video_info.base_url must be set when videoinfo is the only provider")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.MaxChunkChars < 1000 {
		return errors.New("llm.max_chunk_chars must be at least 1000")
	}
	if c.LLM.MaxChunks < 1 {
		return errors.New("llm.max_chunks must be at least 1")
	}
	return nil
}

func (c *Config) validateDebug() error {
	switch c.Debug.Backend {
	case "filesystem":
		return nil
	case "supabase":
		if !c.Debug.Enabled {
			return nil
		}
		if c.Debug.SupabaseURL == "" || c.Debug.SupabaseKey == "" {
			return errors.New("debug.supabase_url and debug.supabase_key must be set for the supabase backend")
		}
		return nil
	default:
		return fmt.Errorf("debug.backend: unsupported value %q", c.Debug.Backend)
	}
}

func (c *Config) validateBudget() error {
	switch strings.ToLower(c.Budget.Tier) {
	case "", "hobby", "pro", "unlimited":
		return nil
	default:
		// Unknown tiers fall open to the unlimited preset at resolve time.
		// Accept them here so a misspelled tier degrades rather than refuses.
		return nil
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}
