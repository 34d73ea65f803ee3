package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotInitialized is returned by Load when MAILVOX_HOME has no config.yaml.
var ErrNotInitialized = errors.New("mailvox home is not initialized (run mailvox init)")

// VocabularyConfig holds the spoken control phrases.
type VocabularyConfig struct {
	Wake        []string `yaml:"wake"`
	Exit        []string `yaml:"exit"`
	Shutdown    []string `yaml:"shutdown"`
	Affirmative []string `yaml:"affirmative"`
}

// SessionConfig holds the awake-session policy.
type SessionConfig struct {
	SleepPolicy    string `yaml:"sleep_policy"`
	SleepThreshold int    `yaml:"sleep_threshold"`
	IdlePollMS     int    `yaml:"idle_poll_ms"`
}

// DialogConfig holds listening windows and handler limits.
type DialogConfig struct {
	ConfirmScope    string `yaml:"confirm_scope"`
	WakeSeconds     int    `yaml:"wake_seconds"`
	CommandSeconds  int    `yaml:"command_seconds"`
	BodySeconds     int    `yaml:"body_seconds"`
	UnreadLimit     int    `yaml:"unread_limit"`
	SenderLimit     int    `yaml:"sender_limit"`
	BulkDeleteLimit int    `yaml:"bulk_delete_limit"`
	DefaultSubject  string `yaml:"default_subject"`
}

type AudioConfig struct {
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
}

type STTConfig struct {
	Command  string `yaml:"command"`
	Model    string `yaml:"model,omitempty"`
	Language string `yaml:"language"`
}

type TTSConfig struct {
	Command string `yaml:"command"`
}

// LLMConfig selects the intent oracle and body improver backend. An empty
// Model uses the provider default.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

type MailConfig struct {
	Provider string `yaml:"provider"`
	User     string `yaml:"user"`
}

// MetricsConfig enables the Prometheus listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config holds mailvox configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Session    SessionConfig    `yaml:"session"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Audio      AudioConfig      `yaml:"audio"`
	STT        STTConfig        `yaml:"stt"`
	TTS        TTSConfig        `yaml:"tts"`
	LLM        LLMConfig        `yaml:"llm"`
	Mail       MailConfig       `yaml:"mail"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Vocabulary: VocabularyConfig{
			Wake:        []string{"hey assistant", "hello assistant"},
			Exit:        []string{"cancel", "stop", "go to sleep", "sleep"},
			Shutdown:    []string{"exit", "shut down", "shutdown"},
			Affirmative: []string{"yes", "yeah", "sure", "ok", "okay"},
		},
		Session: SessionConfig{
			SleepPolicy:    "misunderstandings",
			SleepThreshold: 2,
			IdlePollMS:     400,
		},
		Dialog: DialogConfig{
			ConfirmScope:    "prompt",
			WakeSeconds:     3,
			CommandSeconds:  5,
			BodySeconds:     15,
			UnreadLimit:     10,
			SenderLimit:     3,
			BulkDeleteLimit: 500,
			DefaultSubject:  "Voice Assistant Message",
		},
		Audio: AudioConfig{Command: "arecord", SampleRate: 16000},
		STT:   STTConfig{Command: "whisper-cli", Language: "en"},
		TTS:   TTSConfig{Command: "festival"},
		LLM:   LLMConfig{Provider: "ollama"},
		Mail:  MailConfig{Provider: "gmail", User: "me"},
	}
}

// Store represents a loaded MAILVOX_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the MAILVOX_HOME path, respecting the MAILVOX_HOME env var.
func Home() string {
	if h := os.Getenv("MAILVOX_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".mailvox")
	}
	return filepath.Join(home, ".mailvox")
}

// Init creates the MAILVOX_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err == nil && !force {
		return fmt.Errorf("MAILVOX_HOME already exists at %s (use --force to reinitialize)", home)
	}
	if err := os.MkdirAll(filepath.Join(home, "audio"), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}
	s := &Store{Home: home, Config: DefaultConfig()}
	return s.SaveConfig()
}

// Load reads an existing MAILVOX_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, home)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(s.Path("config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Path resolves a path within MAILVOX_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

func (s *Store) CredentialsPath() string { return s.Path("credentials.json") }
func (s *Store) TokenPath() string       { return s.Path("token.json") }
func (s *Store) ContactsPath() string    { return s.Path("contacts.yaml") }
func (s *Store) AudioDir() string        { return s.Path("audio") }

// configKey binds a dot-path key to its field.
type configKey struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var configKeys = map[string]configKey{
	"vocabulary.wake":        listKey(func(c *Config) *[]string { return &c.Vocabulary.Wake }),
	"vocabulary.exit":        listKey(func(c *Config) *[]string { return &c.Vocabulary.Exit }),
	"vocabulary.shutdown":    listKey(func(c *Config) *[]string { return &c.Vocabulary.Shutdown }),
	"vocabulary.affirmative": listKey(func(c *Config) *[]string { return &c.Vocabulary.Affirmative }),

	"session.sleep_policy":    choiceKey(func(c *Config) *string { return &c.Session.SleepPolicy }, "misunderstandings", "commands"),
	"session.sleep_threshold": intKey(func(c *Config) *int { return &c.Session.SleepThreshold }, 0),
	"session.idle_poll_ms":    intKey(func(c *Config) *int { return &c.Session.IdlePollMS }, 1),

	"dialog.confirm_scope":     choiceKey(func(c *Config) *string { return &c.Dialog.ConfirmScope }, "prompt", "any"),
	"dialog.wake_seconds":      intKey(func(c *Config) *int { return &c.Dialog.WakeSeconds }, 1),
	"dialog.command_seconds":   intKey(func(c *Config) *int { return &c.Dialog.CommandSeconds }, 1),
	"dialog.body_seconds":      intKey(func(c *Config) *int { return &c.Dialog.BodySeconds }, 1),
	"dialog.unread_limit":      intKey(func(c *Config) *int { return &c.Dialog.UnreadLimit }, 1),
	"dialog.sender_limit":      intKey(func(c *Config) *int { return &c.Dialog.SenderLimit }, 1),
	"dialog.bulk_delete_limit": intKey(func(c *Config) *int { return &c.Dialog.BulkDeleteLimit }, 1),
	"dialog.default_subject":   stringKey(func(c *Config) *string { return &c.Dialog.DefaultSubject }),

	"audio.command":     stringKey(func(c *Config) *string { return &c.Audio.Command }),
	"audio.sample_rate": intKey(func(c *Config) *int { return &c.Audio.SampleRate }, 8000),
	"stt.command":       stringKey(func(c *Config) *string { return &c.STT.Command }),
	"stt.model":         stringKey(func(c *Config) *string { return &c.STT.Model }),
	"stt.language":      stringKey(func(c *Config) *string { return &c.STT.Language }),
	"tts.command":       stringKey(func(c *Config) *string { return &c.TTS.Command }),

	"llm.provider":    choiceKey(func(c *Config) *string { return &c.LLM.Provider }, "ollama", "genai", "keywords"),
	"llm.model":       stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.base_url":    stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),
	"llm.api_key_env": stringKey(func(c *Config) *string { return &c.LLM.APIKeyEnv }),

	"mail.provider": choiceKey(func(c *Config) *string { return &c.Mail.Provider }, "gmail"),
	"mail.user":     stringKey(func(c *Config) *string { return &c.Mail.User }),
	"metrics.addr":  stringKey(func(c *Config) *string { return &c.Metrics.Addr }),
}

func stringKey(field func(*Config) *string) configKey {
	return configKey{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = strings.TrimSpace(v); return nil },
	}
}

func choiceKey(field func(*Config) *string, choices ...string) configKey {
	return configKey{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			for _, ch := range choices {
				if v == ch {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("must be one of: %s", strings.Join(choices, ", "))
		},
	}
}

func intKey(field func(*Config) *int, min int) configKey {
	return configKey{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < min {
				return fmt.Errorf("must be an integer >= %d", min)
			}
			*field(c) = n
			return nil
		},
	}
}

// listKey reads and writes comma-separated phrase lists.
func listKey(field func(*Config) *[]string) configKey {
	return configKey{
		get: func(c *Config) string { return strings.Join(*field(c), ", ") },
		set: func(c *Config, v string) error {
			var out []string
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, strings.ToLower(p))
				}
			}
			if len(out) == 0 {
				return fmt.Errorf("must list at least one phrase")
			}
			*field(c) = out
			return nil
		},
	}
}

// ConfigKeys lists every settable dot-path key, sorted.
func ConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetConfigValue reads a config value by dot-path key (e.g. "llm.model").
func (s *Store) GetConfigValue(key string) (string, error) {
	k, ok := configKeys[key]
	if !ok {
		return "", unknownKey(key)
	}
	return k.get(&s.Config), nil
}

// SetConfigValue sets a config value by dot-path key and saves config.yaml.
func (s *Store) SetConfigValue(key, value string) error {
	k, ok := configKeys[key]
	if !ok {
		return unknownKey(key)
	}
	if err := k.set(&s.Config, value); err != nil {
		return fmt.Errorf("%s %w", key, err)
	}
	return s.SaveConfig()
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys(), ", "))
}

// CheckHealth verifies MAILVOX_HOME structure and config integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	p := filepath.Join(home, "audio")
	info, err := os.Stat(p)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
	} else if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else {
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		} else {
			issues = append(issues, checkConfig(cfg)...)
		}
	}

	if _, err := os.Stat(filepath.Join(home, "credentials.json")); err != nil {
		issues = append(issues, Issue{"warning", "no credentials.json: download an OAuth client for the Gmail API into " + home})
	}
	if _, err := os.Stat(filepath.Join(home, "token.json")); err != nil {
		issues = append(issues, Issue{"warning", "no token.json: run mailvox auth"})
	}
	if data, err := os.ReadFile(filepath.Join(home, "contacts.yaml")); err == nil {
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("contacts.yaml is not valid YAML: %v", err)})
		}
	}
	return issues
}

// checkConfig validates values a hand-edited config.yaml may get wrong.
func checkConfig(cfg Config) []Issue {
	var issues []Issue
	candidate := cfg
	for _, key := range []string{"session.sleep_policy", "dialog.confirm_scope", "llm.provider", "mail.provider"} {
		k := configKeys[key]
		if err := k.set(&candidate, k.get(&cfg)); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("%s %v", key, err)})
		}
	}
	if len(cfg.Vocabulary.Wake) == 0 {
		issues = append(issues, Issue{"error", "vocabulary.wake is empty: the assistant could never wake"})
	}
	if len(cfg.Vocabulary.Shutdown) == 0 {
		issues = append(issues, Issue{"warning", "vocabulary.shutdown is empty: only ctrl+c stops the assistant"})
	}
	return issues
}

// FixIssues attempts to repair simple issues in MAILVOX_HOME.
func FixIssues(home string) []string {
	var fixed []string

	if _, err := os.Stat(filepath.Join(home, "audio")); err != nil {
		if err := os.MkdirAll(filepath.Join(home, "audio"), 0755); err == nil {
			fixed = append(fixed, "recreated missing directory: audio")
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		s := &Store{Home: home, Config: DefaultConfig()}
		if s.SaveConfig() == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	return fixed
}
