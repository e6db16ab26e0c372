package config

import (
	"fmt"
	"sync/atomic"
)

// Holder provides hot-reloadable access to the current Config. Readers
// call Get on every use; Reload swaps the snapshot atomically so a
// failed reload never clobbers a working configuration.
type Holder struct {
	current  atomic.Pointer[Config]
	yamlPath string
}

// NewHolder wraps an already-loaded config for later reloads from the
// same YAML path.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	h := &Holder{yamlPath: yamlPath}
	h.current.Store(cfg)
	return h
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Reload re-runs the defaults < YAML < ENV hierarchy and swaps the
// snapshot. On any error the previous config stays active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return fmt.Errorf("config reload: %w", err)
	}
	h.current.Store(cfg)
	return nil
}
