// Package config implements the two-tier (user + project) settings merge
// of SPEC_FULL.md §3.2, adapted from the teacher's internal/config
// Manager: the same user-config-then-project-config load order with
// project values winning, but over YAML settings files (matching the
// rest of the pack's gopkg.in/yaml.v3 usage) and a field set repurposed
// for editor settings instead of agent/LLM settings.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the merged settings an Editor/Server/Client is built from.
type Config struct {
	Theme               string            `yaml:"theme,omitempty"`
	TabWidth            int               `yaml:"tab_width,omitempty"`
	LineEnding          string            `yaml:"line_ending,omitempty"` // "lf" or "crlf"
	IdleTimeoutSeconds  int               `yaml:"idle_timeout_seconds,omitempty"`
	FrameIntervalMillis int               `yaml:"frame_interval_millis,omitempty"`
	Keybindings         map[string]string `yaml:"keybindings,omitempty"`
}

// IdleTimeout resolves IdleTimeoutSeconds to a time.Duration, 0 meaning
// "disabled" (session.Server treats <=0 the same way).
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// FrameInterval resolves FrameIntervalMillis, falling back to the
// spec's ~16ms default when unset.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameIntervalMillis <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.FrameIntervalMillis) * time.Millisecond
}

// Manager loads, merges, and persists the user and project settings
// layers.
type Manager struct {
	userConfig    *Config
	projectConfig *Config
	merged        *Config
}

// NewManager returns an empty Manager; call Load to populate it.
func NewManager() *Manager {
	return &Manager{
		userConfig:    &Config{},
		projectConfig: &Config{},
		merged:        &Config{},
	}
}

// Load reads settings.yaml from both userConfigDir and
// projectDir/.fresh, then merges them (project overrides user).
// A missing file in either tier is not an error.
func (m *Manager) Load(userConfigDir, projectDir string) error {
	if err := m.loadConfig(filepath.Join(userConfigDir, "settings.yaml"), m.userConfig); err != nil {
		return err
	}
	if err := m.loadConfig(filepath.Join(projectDir, ".fresh", "settings.yaml"), m.projectConfig); err != nil {
		return err
	}
	m.mergeConfigs()
	return nil
}

func (m *Manager) loadConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) mergeConfigs() {
	m.merged = &Config{
		Theme:               getStringValue(m.userConfig.Theme, m.projectConfig.Theme, "default"),
		TabWidth:            getIntValue(m.userConfig.TabWidth, m.projectConfig.TabWidth, 4),
		LineEnding:          getStringValue(m.userConfig.LineEnding, m.projectConfig.LineEnding, "lf"),
		IdleTimeoutSeconds:  getIntValue(m.userConfig.IdleTimeoutSeconds, m.projectConfig.IdleTimeoutSeconds, 0),
		FrameIntervalMillis: getIntValue(m.userConfig.FrameIntervalMillis, m.projectConfig.FrameIntervalMillis, 16),
		Keybindings:         mergeKeybindings(m.userConfig.Keybindings, m.projectConfig.Keybindings),
	}
}

// mergeKeybindings overlays project bindings onto user bindings key by
// key, rather than the whole-value override getStringValue/getIntValue
// use, since a project settings file is expected to redefine only a few
// keys, not the entire table.
func mergeKeybindings(user, project map[string]string) map[string]string {
	if len(user) == 0 && len(project) == 0 {
		return nil
	}
	merged := make(map[string]string, len(user)+len(project))
	for k, v := range user {
		merged[k] = v
	}
	for k, v := range project {
		merged[k] = v
	}
	return merged
}

func getStringValue(user, project, defaultValue string) string {
	if project != "" {
		return project
	}
	if user != "" {
		return user
	}
	return defaultValue
}

func getIntValue(user, project, defaultValue int) int {
	if project != 0 {
		return project
	}
	if user != 0 {
		return user
	}
	return defaultValue
}

// Get returns the merged settings, valid after Load.
func (m *Manager) Get() *Config {
	return m.merged
}

// SaveUserConfig writes the in-memory user tier to
// userConfigDir/settings.yaml.
func (m *Manager) SaveUserConfig(userConfigDir string) error {
	if err := os.MkdirAll(userConfigDir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m.userConfig)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(userConfigDir, "settings.yaml"), data, 0o644)
}

// SaveProjectConfig writes the in-memory project tier to
// projectDir/.fresh/settings.yaml.
func (m *Manager) SaveProjectConfig(projectDir string) error {
	dir := filepath.Join(projectDir, ".fresh")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m.projectConfig)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "settings.yaml"), data, 0o644)
}
