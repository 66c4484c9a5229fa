package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"icsconv/internal/ics"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

// NOTE: YAML is the source of truth; ICSCONV_* environment variables are
// overlaid on every Load but never written back by Save.

const (
	defaultListen        = "127.0.0.1:8080"
	defaultLogLevel      = "info"
	defaultOutputDir     = "./out"
	defaultInbox         = "./inbox"
	defaultOutbox        = "./outbox"
	defaultWatchSchedule = "*/5 * * * *"

	envPrefix = "ICSCONV"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// WatchConfig drives the scheduled inbox conversion.
type WatchConfig struct {
	// Inbox is scanned for *.txt and *.json files.
	Inbox string `yaml:"inbox" json:"inbox"`
	// Outbox receives the generated .ics files.
	Outbox string `yaml:"outbox" json:"outbox"`
	// Schedule is a five-field cron expression (e.g. "*/5 * * * *").
	Schedule string `yaml:"schedule" json:"schedule"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone assigned to events whose source names none.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ProdID is emitted as the calendar PRODID.
	ProdID string `yaml:"prod_id" json:"prod_id"`

	// OutputDir is where convert mode writes .ics files.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// StrictValidation additionally decodes every generated calendar
	// before it is delivered.
	StrictValidation bool `yaml:"strict_validation" json:"strict_validation"`

	// Subjects replaces the built-in timetable subject list when non-empty.
	Subjects []string `yaml:"subjects" json:"subjects"`

	Watch WatchConfig `yaml:"watch" json:"watch"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    defaultListen,
		Timezone:  model.DefaultTimezone,
		LogLevel:  defaultLogLevel,
		ProdID:    ics.DefaultProdID,
		OutputDir: defaultOutputDir,
		Subjects:  []string{},
		Watch: WatchConfig{
			Inbox:    defaultInbox,
			Outbox:   defaultOutbox,
			Schedule: defaultWatchSchedule,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = model.DefaultTimezone
	} else if _, err := time.LoadLocation(c.Timezone); err != nil {
		appLog.Error("unknown timezone in config; using default", err, "timezone", c.Timezone, "default", model.DefaultTimezone)
		c.Timezone = model.DefaultTimezone
	}
	switch c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel)); c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.ProdID == "" {
		c.ProdID = ics.DefaultProdID
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.Subjects == nil {
		c.Subjects = []string{}
	}
	if c.Watch.Inbox == "" {
		c.Watch.Inbox = defaultInbox
	}
	if c.Watch.Outbox == "" {
		c.Watch.Outbox = defaultOutbox
	}
	if c.Watch.Schedule == "" {
		c.Watch.Schedule = defaultWatchSchedule
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshaled.
//
// In both cases ICSCONV_* environment variables are applied before the
// result is normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				ApplyEnv(cfg)
				cfg.Normalize()
				return cfg, err
			}
			ApplyEnv(cfg)
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyEnv(&cfg)
	cfg.Normalize()

	return &cfg, nil
}

// ApplyEnv overlays ICSCONV_* environment variables, e.g. ICSCONV_TIMEZONE
// or ICSCONV_WATCH_INBOX. ICSCONV_SUBJECTS is a comma-separated list.
func ApplyEnv(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	strs := map[string]*string{
		"listen":     &c.Listen,
		"timezone":   &c.Timezone,
		"log_level":  &c.LogLevel,
		"prod_id":    &c.ProdID,
		"output_dir": &c.OutputDir,

		"watch.inbox":    &c.Watch.Inbox,
		"watch.outbox":   &c.Watch.Outbox,
		"watch.schedule": &c.Watch.Schedule,
	}
	for key, dst := range strs {
		_ = v.BindEnv(key)
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			*dst = s
		}
	}

	_ = v.BindEnv("strict_validation")
	if v.IsSet("strict_validation") {
		c.StrictValidation = v.GetBool("strict_validation")
	}

	_ = v.BindEnv("subjects")
	if raw := strings.TrimSpace(v.GetString("subjects")); raw != "" {
		var subjects []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				subjects = append(subjects, s)
			}
		}
		c.Subjects = subjects
	}

	_ = v.BindEnv("basic_auth.username")
	_ = v.BindEnv("basic_auth.password")
	user := v.GetString("basic_auth.username")
	pass := v.GetString("basic_auth.password")
	if user != "" || pass != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: pass}
	}

	c.Normalize()
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icsconv-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
