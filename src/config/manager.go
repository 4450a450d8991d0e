package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spf13/afero"
)

// Manager manages configuration loading, validation, and access
type Manager struct {
	config    *Config
	loader    *Loader
	validator *Validator
	mu        sync.RWMutex
}

// NewManager loads the layered configuration from fsys
func NewManager(fsys afero.Fs) (*Manager, error) {
	return NewManagerWithLoader(NewLoader(fsys, GetConfigPaths()))
}

// NewManagerWithLoader loads configuration through a prepared loader
func NewManagerWithLoader(loader *Loader) (*Manager, error) {
	config, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &Manager{
		config:    config,
		loader:    loader,
		validator: NewValidator(),
	}, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Reload reloads the configuration from disk
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	config, err := m.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	m.config = config
	return nil
}

// Update edits a copy of the configuration with fn and revalidates it.
// The previous configuration is kept when validation fails.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := *m.config
	fn(&next)
	if err := m.validator.Validate(&next); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	m.config = &next
	return nil
}

// SaveTo saves the configuration to a specific path
func (m *Manager) SaveTo(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.loader.SaveFile(m.config, path)
}

// Paths returns the files checked during loading, in precedence order
func (m *Manager) Paths() ConfigPrecedence {
	return m.loader.precedence
}

// GetInfo returns information about the configuration setup
func (m *Manager) GetInfo() *ConfigInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := &ConfigInfo{
		LoadedConfigs: m.loader.Loaded(),
		BaseURL:       m.config.API.BaseURL,
		DatabasePath:  m.config.Storage.DatabasePath,
	}
	if len(info.LoadedConfigs) > 0 {
		info.ActiveConfig = info.LoadedConfigs[len(info.LoadedConfigs)-1].Path
	} else {
		info.Warnings = append(info.Warnings, "No configuration files found, using defaults")
	}
	if m.config.Token != "" {
		info.Warnings = append(info.Warnings, "Access token taken from the environment")
	}
	return info
}

// ExportConfig exports the configuration as JSON. Environment overrides
// such as the token are never exported.
func (m *Manager) ExportConfig() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return json.MarshalIndent(m.config, "", "  ")
}

// ConfigInfo provides information about the configuration setup
type ConfigInfo struct {
	LoadedConfigs []ConfigLocation
	ActiveConfig  string
	BaseURL       string
	DatabasePath  string
	Warnings      []string
}
