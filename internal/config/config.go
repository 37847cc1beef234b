// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/iea-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete iea configuration.
type Config struct {
	Chat       ChatConfig       `toml:"chat"`
	Provider   ProviderConfig   `toml:"provider"`
	Persona    PersonaConfig    `toml:"persona"`
	Membership MembershipConfig `toml:"membership"`
	Storage    StorageConfig    `toml:"storage"`
	UI         UIConfig         `toml:"ui"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ChatConfig controls the context window, pacing and playback.
type ChatConfig struct {
	// WindowSize is how many recent turns are sent to the model.
	WindowSize int `toml:"window_size"`
	// MaxChars caps each turn in the window, in characters.
	MaxChars int `toml:"max_chars"`
	// MinInterval is the minimum gap between accepted submissions.
	MinInterval Duration `toml:"min_interval"`
	// RevealChunk and RevealDelay drive the typewriter effect.
	RevealChunk    int      `toml:"reveal_chunk"`
	RevealDelay    Duration `toml:"reveal_delay"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
	// OCRLang is passed to tesseract, e.g. "ind+eng". Empty uses its default.
	OCRLang string `toml:"ocr_lang"`
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	// Kind is one of: auto, groq, ollama, none.
	Kind          string   `toml:"kind"`
	GroqAPIKey    string   `toml:"groq_api_key"`
	GroqBaseURL   string   `toml:"groq_base_url"`
	PrimaryModel  string   `toml:"primary_model"`
	FallbackModel string   `toml:"fallback_model"`
	Temperature   float64  `toml:"temperature"`
	Timeout       Duration `toml:"timeout"`

	OllamaURL      string `toml:"ollama_url"`
	OllamaPrimary  string `toml:"ollama_primary"`
	OllamaFallback string `toml:"ollama_fallback"`
}

// PersonaConfig shapes the system instruction.
type PersonaConfig struct {
	// SystemPrompt replaces the built-in instruction when set.
	SystemPrompt string `toml:"system_prompt"`
	Language     string `toml:"language"`
}

// MembershipConfig points at the community list.
type MembershipConfig struct {
	BaseURL           string   `toml:"base_url"`
	Groups            []string `toml:"groups"`
	Auth              string   `toml:"auth"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// StorageConfig locates local files. Empty paths use ~/.iea defaults.
type StorageConfig struct {
	HistoryFile string `toml:"history_file"`
	AuditDB     string `toml:"audit_db"`
	// Watch warns when another process rewrites the history file.
	Watch bool `toml:"watch"`
	// Audit enables the SQLite call log.
	Audit bool `toml:"audit"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Theme is one of: iea-ai, cosmos, iea-intelligence.
	Theme     string `toml:"theme"`
	Markdown  bool   `toml:"markdown"`
	AltScreen bool   `toml:"alt_screen"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `toml:"level"`
	// File is the log path. Empty means ~/.iea/iea.log.
	File string `toml:"file"`
}

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as a string ("1.2s") in TOML.
type Duration struct {
	time.Duration
}

// D wraps d.
func D(d time.Duration) Duration {
	return Duration{d}
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	d.Duration = v
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Provider kinds.
const (
	ProviderAuto   = "auto"
	ProviderGroq   = "groq"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// Themes lists the accepted ui.theme values.
var Themes = []string{"iea-ai", "cosmos", "iea-intelligence"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Chat: ChatConfig{
			WindowSize:     12,
			MaxChars:       1500,
			MinInterval:    D(1200 * time.Millisecond),
			RevealChunk:    40,
			RevealDelay:    D(30 * time.Millisecond),
			MaxUploadBytes: 10 << 20,
		},
		Provider: ProviderConfig{
			Kind:           ProviderAuto,
			GroqBaseURL:    "https://api.groq.com/openai/v1",
			PrimaryModel:   "llama-3.3-70b-versatile",
			FallbackModel:  "llama-3.1-8b-instant",
			Temperature:    0.7,
			Timeout:        D(30 * time.Second),
			OllamaURL:      "http://127.0.0.1:11434",
			OllamaPrimary:  "llama3.1:8b",
			OllamaFallback: "llama3.2:3b",
		},
		Persona: PersonaConfig{
			Language: "Bahasa Indonesia",
		},
		Membership: MembershipConfig{
			Groups:            []string{"members", "admins"},
			Timeout:           D(8 * time.Second),
			RequestsPerSecond: 2,
		},
		Storage: StorageConfig{
			Watch: true,
			Audit: true,
		},
		UI: UIConfig{
			Theme:     "iea-ai",
			Markdown:  true,
			AltScreen: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns ~/.iea.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".iea"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath resolves storage.history_file.
func (c *Config) HistoryPath() (string, error) {
	return c.inDir(c.Storage.HistoryFile, "ai_iea_chat_history.json")
}

// AuditPath resolves storage.audit_db.
func (c *Config) AuditPath() (string, error) {
	return c.inDir(c.Storage.AuditDB, "audit.db")
}

// LogPath resolves logging.file.
func (c *Config) LogPath() (string, error) {
	return c.inDir(c.Logging.File, "iea.log")
}

func (c *Config) inDir(set, name string) (string, error) {
	if set != "" {
		return expandHome(set), nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// ensureSecurePermissions tightens a config file holding keys to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// LoadDotEnv loads .env from the working directory into the process
// environment. Variables already set win. A missing file is not an error.
func LoadDotEnv() error {
	return LoadDotEnvFrom(".env")
}

// LoadDotEnvFrom loads the given env file.
func LoadDotEnvFrom(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the default config file. A missing file yields the defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, cfg.Validate()
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path over the defaults, applies
// environment overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg, err := Decode(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Decode reads the file at path over the defaults, without environment
// overrides or validation. A missing file yields the defaults. Use it to
// edit the file so secrets from the environment are not written back.
func Decode(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if err := ensureSecurePermissions(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
		}
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// Save writes the configuration to the default path.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration as TOML with 0600 permissions.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# iea configuration file")
	fmt.Fprintln(&buf, "# Environment variables (GROQ_API_KEY, IEA_*) override these values.")
	fmt.Fprintln(&buf)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// normalize lower-cases enum fields.
func (c *Config) normalize() {
	c.Provider.Kind = strings.ToLower(strings.TrimSpace(c.Provider.Kind))
	c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - GROQ_API_KEY: provider.groq_api_key
//   - IEA_PROVIDER: provider.kind
//   - IEA_MEMBERSHIP_URL: membership.base_url
//   - IEA_MEMBERSHIP_AUTH: membership.auth
//   - IEA_THEME: ui.theme
//   - IEA_HISTORY_FILE: storage.history_file
//   - IEA_LOG_LEVEL: logging.level
//   - OLLAMA_HOST: provider.ollama_url
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Provider.GroqAPIKey = key
	}
	if kind := os.Getenv("IEA_PROVIDER"); kind != "" {
		c.Provider.Kind = kind
	}
	if u := os.Getenv("IEA_MEMBERSHIP_URL"); u != "" {
		c.Membership.BaseURL = u
	}
	if auth := os.Getenv("IEA_MEMBERSHIP_AUTH"); auth != "" {
		c.Membership.Auth = auth
	}
	if theme := os.Getenv("IEA_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if hist := os.Getenv("IEA_HISTORY_FILE"); hist != "" {
		c.Storage.HistoryFile = hist
	}
	if level := os.Getenv("IEA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		c.Provider.OllamaURL = host
	}
	c.normalize()
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks ranges and enums.
func (c *Config) Validate() error {
	var errs ValidateErrors
	bad := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Chat.WindowSize <= 0 {
		bad("chat.window_size", "must be positive, got %d", c.Chat.WindowSize)
	}
	if c.Chat.MaxChars <= 0 {
		bad("chat.max_chars", "must be positive, got %d", c.Chat.MaxChars)
	}
	if c.Chat.MinInterval.Duration < 0 {
		bad("chat.min_interval", "must not be negative")
	}
	if c.Chat.RevealChunk <= 0 {
		bad("chat.reveal_chunk", "must be positive, got %d", c.Chat.RevealChunk)
	}
	if c.Chat.RevealDelay.Duration < 0 {
		bad("chat.reveal_delay", "must not be negative")
	}
	if c.Chat.MaxUploadBytes <= 0 {
		bad("chat.max_upload_bytes", "must be positive, got %d", c.Chat.MaxUploadBytes)
	}

	switch c.Provider.Kind {
	case ProviderAuto, ProviderGroq, ProviderOllama, ProviderNone:
	default:
		bad("provider.kind", "invalid kind '%s', must be one of: auto, groq, ollama, none", c.Provider.Kind)
	}
	if t := c.Provider.Timeout.Duration; t < time.Second || t > 120*time.Second {
		bad("provider.timeout", "must be between 1s and 120s, got %s", t)
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		bad("provider.temperature", "must be between 0 and 2, got %g", c.Provider.Temperature)
	}

	if c.Membership.BaseURL != "" && !strings.HasPrefix(c.Membership.BaseURL, "http://") &&
		!strings.HasPrefix(c.Membership.BaseURL, "https://") {
		bad("membership.base_url", "must be an http(s) URL")
	}
	if c.Membership.Timeout.Duration <= 0 {
		bad("membership.timeout", "must be positive")
	}
	if c.Membership.RequestsPerSecond < 0 {
		bad("membership.requests_per_second", "must not be negative")
	}

	if !validTheme(c.UI.Theme) {
		bad("ui.theme", "invalid theme '%s', must be one of: %s", c.UI.Theme, strings.Join(Themes, ", "))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		bad("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by dotted key, e.g. "chat.window_size".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if d, ok := field.Interface().(Duration); ok {
		return d.String(), nil
	}
	return field.Interface(), nil
}

// Set assigns a value by dotted key. String input is converted to the
// field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		if tu, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return tu.UnmarshalText([]byte(strVal))
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("nil value")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys lists every settable key in dot notation.
func Keys() []string {
	var out []string
	collectKeys(reflect.TypeOf(Config{}), "", &out)
	return out
}

func collectKeys(t reflect.Type, prefix string, out *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("toml"), ",")[0]
		if tag == "" {
			continue
		}
		key := prefix + tag
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(Duration{}) {
			collectKeys(f.Type, key+".", out)
			continue
		}
		*out = append(*out, key)
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Membership.Groups = append([]string(nil), c.Membership.Groups...)
	cp.Provider.GroqAPIKey = mask(c.Provider.GroqAPIKey)
	cp.Membership.Auth = mask(c.Membership.Auth)
	return &cp
}

// String renders the redacted config as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
}
