// Package config loads facegate configuration from built-in defaults, an
// optional TOML file, and FACEGATE_* environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Fixed gate policy. These are copied into Config so the gate reads them
// from one place, but no file or environment variable can change them.
const (
	DefaultThreshold = 3
	GraceInterval    = 3 * time.Second
)

// Defaults for the configurable settings.
const (
	DefaultConfigPath       = "/etc/facegate/facegate.toml"
	DefaultCounterPath      = "/var/lib/facegate/failures"
	DefaultJournalPath      = "/var/lib/facegate/journal.jsonl"
	DefaultRegistrationPath = "/etc/rc.local"
	DefaultMarker           = "# facegate failsafe gate"
	DefaultInvocationLine   = "/usr/local/bin/facegate run"
	DefaultUnlockCommand    = "/usr/local/bin/face-unlock"
	DefaultCheckTimeout     = 60 * time.Second
)

type Config struct {
	CounterPath      string        // FACEGATE_COUNTER_PATH
	RegistrationPath string        // FACEGATE_REGISTRATION_PATH
	Marker           string        // FACEGATE_MARKER
	InvocationLine   string        // FACEGATE_INVOCATION_LINE
	UnlockCommand    string        // FACEGATE_UNLOCK_COMMAND
	CheckTimeout     time.Duration // FACEGATE_CHECK_TIMEOUT (default 60s)
	SessionUser      string        // FACEGATE_SESSION_USER (default $SUDO_USER, then $USER)
	TerminateCommand string        // FACEGATE_TERMINATE_COMMAND (optional, default loginctl)
	JournalPath      string        // FACEGATE_JOURNAL_PATH
	NATSURL          string        // FACEGATE_NATS_URL (optional, empty = no events)
	LogLevel         string        // FACEGATE_LOG_LEVEL (default "info")

	Threshold     int
	GraceInterval time.Duration

	Sync SyncConfig

	// File is the config file that was loaded, empty when none existed.
	File string
}

// SyncConfig configures where `facegate audit push` ships the journal.
type SyncConfig struct {
	Interval    time.Duration // FACEGATE_SYNC_INTERVAL (default 0 = push once)
	S3Bucket    string        // FACEGATE_SYNC_S3_BUCKET (enables S3 when set)
	S3Endpoint  string        // FACEGATE_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region    string        // FACEGATE_SYNC_S3_REGION (default "us-east-1")
	S3Key       string        // FACEGATE_SYNC_S3_KEY (default "facegate/{host}.jsonl")
	GitRepo     string        // FACEGATE_SYNC_GIT_REPO (enables git when set; path to clone)
	GitFile     string        // FACEGATE_SYNC_GIT_FILE (default "facegate/{host}.jsonl")
	GitBranch   string        // FACEGATE_SYNC_GIT_BRANCH (default "main")
	PostgresURL string        // FACEGATE_SYNC_POSTGRES_URL (enables Postgres when set)
}

// Enabled reports whether any destination is configured.
func (s SyncConfig) Enabled() bool {
	return s.S3Bucket != "" || s.GitRepo != "" || s.PostgresURL != ""
}

// FileConfig mirrors Config in the layout of the TOML file. Durations are
// strings so the file accepts the same "90s" syntax as the environment.
type FileConfig struct {
	CounterPath      string `toml:"counter_path,omitempty" json:"counter_path,omitempty"`
	RegistrationPath string `toml:"registration_path,omitempty" json:"registration_path,omitempty"`
	Marker           string `toml:"marker,omitempty" json:"marker,omitempty"`
	InvocationLine   string `toml:"invocation_line,omitempty" json:"invocation_line,omitempty"`
	UnlockCommand    string `toml:"unlock_command,omitempty" json:"unlock_command,omitempty"`
	CheckTimeout     string `toml:"check_timeout,omitempty" json:"check_timeout,omitempty"`
	SessionUser      string `toml:"session_user,omitempty" json:"session_user,omitempty"`
	TerminateCommand string `toml:"terminate_command,omitempty" json:"terminate_command,omitempty"`
	JournalPath      string `toml:"journal_path,omitempty" json:"journal_path,omitempty"`
	NATSURL          string `toml:"nats_url,omitempty" json:"nats_url,omitempty"`
	LogLevel         string `toml:"log_level,omitempty" json:"log_level,omitempty"`

	Sync FileSyncConfig `toml:"sync" json:"sync"`
}

// FileSyncConfig is the [sync] table of FileConfig.
type FileSyncConfig struct {
	Interval    string `toml:"interval,omitempty" json:"interval,omitempty"`
	S3Bucket    string `toml:"s3_bucket,omitempty" json:"s3_bucket,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty" json:"s3_endpoint,omitempty"`
	S3Region    string `toml:"s3_region,omitempty" json:"s3_region,omitempty"`
	S3Key       string `toml:"s3_key,omitempty" json:"s3_key,omitempty"`
	GitRepo     string `toml:"git_repo,omitempty" json:"git_repo,omitempty"`
	GitFile     string `toml:"git_file,omitempty" json:"git_file,omitempty"`
	GitBranch   string `toml:"git_branch,omitempty" json:"git_branch,omitempty"`
	PostgresURL string `toml:"postgres_url,omitempty" json:"postgres_url,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CounterPath:      DefaultCounterPath,
		RegistrationPath: DefaultRegistrationPath,
		Marker:           DefaultMarker,
		InvocationLine:   DefaultInvocationLine,
		UnlockCommand:    DefaultUnlockCommand,
		CheckTimeout:     DefaultCheckTimeout,
		SessionUser:      defaultSessionUser(),
		JournalPath:      DefaultJournalPath,
		LogLevel:         "info",
		Threshold:        DefaultThreshold,
		GraceInterval:    GraceInterval,
		Sync: SyncConfig{
			S3Region:  "us-east-1",
			S3Key:     "facegate/{host}.jsonl",
			GitFile:   "facegate/{host}.jsonl",
			GitBranch: "main",
		},
	}
}

// Problems lists the settings LoadLenient could not use. Every such setting
// was left at, or reset to, its default.
type Problems struct {
	// Gate holds errors in settings the boot gate depends on: the config
	// file as a whole, the counter, registration, and unlock paths, and the
	// marker and invocation line. The gate cannot run as configured and
	// must fail closed.
	Gate []error
	// Other holds errors in settings the gate can run without: the check
	// timeout (the default applies), logging, events, and audit sync.
	Other []error
}

// GateErr joins the gate problems, nil when there are none.
func (p Problems) GateErr() error {
	return errors.Join(p.Gate...)
}

// Err joins every problem, nil when there are none.
func (p Problems) Err() error {
	return errors.Join(append(append([]error(nil), p.Gate...), p.Other...)...)
}

func (p *Problems) gate(err error)  { p.Gate = append(p.Gate, err) }
func (p *Problems) other(err error) { p.Other = append(p.Other, err) }

// Load builds the configuration from defaults, the file named by
// FACEGATE_CONFIG (default /etc/facegate/facegate.toml; a missing file is
// fine), and the environment, and rejects it if any setting is unusable.
// Operator commands use Load; the boot path uses LoadLenient.
func Load() (*Config, error) {
	c, p := LoadLenient()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadLenient is Load for the boot path: it always returns a usable
// configuration. A malformed config file is ignored as a whole; any other
// unusable setting falls back to its default. What was dropped is reported
// in Problems so the caller can log it and, for gate problems, fail closed.
func LoadLenient() (*Config, Problems) {
	var p Problems
	c := Default()
	c.loadFile(envOrDefault("FACEGATE_CONFIG", DefaultConfigPath), &p)
	c.applyEnv(&p)
	c.check(&p, true)
	return c, p
}

func (c *Config) loadFile(path string, p *Problems) {
	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.gate(fmt.Errorf("config file %s: %w", path, err))
		}
		return
	}
	c.File = path

	setString(&c.CounterPath, fc.CounterPath)
	setString(&c.RegistrationPath, fc.RegistrationPath)
	setString(&c.Marker, fc.Marker)
	setString(&c.InvocationLine, fc.InvocationLine)
	setString(&c.UnlockCommand, fc.UnlockCommand)
	setString(&c.SessionUser, fc.SessionUser)
	setString(&c.TerminateCommand, fc.TerminateCommand)
	setString(&c.JournalPath, fc.JournalPath)
	setString(&c.NATSURL, fc.NATSURL)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.Sync.S3Bucket, fc.Sync.S3Bucket)
	setString(&c.Sync.S3Endpoint, fc.Sync.S3Endpoint)
	setString(&c.Sync.S3Region, fc.Sync.S3Region)
	setString(&c.Sync.S3Key, fc.Sync.S3Key)
	setString(&c.Sync.GitRepo, fc.Sync.GitRepo)
	setString(&c.Sync.GitFile, fc.Sync.GitFile)
	setString(&c.Sync.GitBranch, fc.Sync.GitBranch)
	setString(&c.Sync.PostgresURL, fc.Sync.PostgresURL)

	if err := setDuration(&c.CheckTimeout, fc.CheckTimeout); err != nil {
		p.other(fmt.Errorf("config file %s: check_timeout: %w", path, err))
	}
	if err := setDuration(&c.Sync.Interval, fc.Sync.Interval); err != nil {
		p.other(fmt.Errorf("config file %s: sync.interval: %w", path, err))
	}
}

func (c *Config) applyEnv(p *Problems) {
	setString(&c.CounterPath, os.Getenv("FACEGATE_COUNTER_PATH"))
	setString(&c.RegistrationPath, os.Getenv("FACEGATE_REGISTRATION_PATH"))
	setString(&c.Marker, os.Getenv("FACEGATE_MARKER"))
	setString(&c.InvocationLine, os.Getenv("FACEGATE_INVOCATION_LINE"))
	setString(&c.UnlockCommand, os.Getenv("FACEGATE_UNLOCK_COMMAND"))
	setString(&c.SessionUser, os.Getenv("FACEGATE_SESSION_USER"))
	setString(&c.TerminateCommand, os.Getenv("FACEGATE_TERMINATE_COMMAND"))
	setString(&c.JournalPath, os.Getenv("FACEGATE_JOURNAL_PATH"))
	setString(&c.NATSURL, os.Getenv("FACEGATE_NATS_URL"))
	setString(&c.LogLevel, os.Getenv("FACEGATE_LOG_LEVEL"))
	setString(&c.Sync.S3Bucket, os.Getenv("FACEGATE_SYNC_S3_BUCKET"))
	setString(&c.Sync.S3Endpoint, os.Getenv("FACEGATE_SYNC_S3_ENDPOINT"))
	setString(&c.Sync.S3Region, os.Getenv("FACEGATE_SYNC_S3_REGION"))
	setString(&c.Sync.S3Key, os.Getenv("FACEGATE_SYNC_S3_KEY"))
	setString(&c.Sync.GitRepo, os.Getenv("FACEGATE_SYNC_GIT_REPO"))
	setString(&c.Sync.GitFile, os.Getenv("FACEGATE_SYNC_GIT_FILE"))
	setString(&c.Sync.GitBranch, os.Getenv("FACEGATE_SYNC_GIT_BRANCH"))
	setString(&c.Sync.PostgresURL, os.Getenv("FACEGATE_SYNC_POSTGRES_URL"))

	if err := setDuration(&c.CheckTimeout, os.Getenv("FACEGATE_CHECK_TIMEOUT")); err != nil {
		p.other(fmt.Errorf("FACEGATE_CHECK_TIMEOUT: %w", err))
	}
	if err := setDuration(&c.Sync.Interval, os.Getenv("FACEGATE_SYNC_INTERVAL")); err != nil {
		p.other(fmt.Errorf("FACEGATE_SYNC_INTERVAL: %w", err))
	}
}

// Validate rejects configurations the gate cannot run safely with.
func (c *Config) Validate() error {
	var p Problems
	c.check(&p, false)
	return p.Err()
}

// check records unusable settings. With reset set, each one is put back to
// its default.
func (c *Config) check(p *Problems, reset bool) {
	d := Default()
	for _, f := range []struct {
		name     string
		value    *string
		fallback string
		gate     bool
	}{
		{"counter path", &c.CounterPath, d.CounterPath, true},
		{"registration path", &c.RegistrationPath, d.RegistrationPath, true},
		{"unlock command", &c.UnlockCommand, d.UnlockCommand, true},
		{"journal path", &c.JournalPath, d.JournalPath, false},
	} {
		var err error
		switch {
		case *f.value == "":
			err = fmt.Errorf("%s is required", f.name)
		case !filepath.IsAbs(*f.value):
			err = fmt.Errorf("%s must be absolute, got %q", f.name, *f.value)
		default:
			continue
		}
		if f.gate {
			p.gate(err)
		} else {
			p.other(err)
		}
		if reset {
			*f.value = f.fallback
		}
	}

	marker, line := strings.TrimSpace(c.Marker), strings.TrimSpace(c.InvocationLine)
	var blockErr error
	switch {
	case marker == "":
		blockErr = fmt.Errorf("marker is required")
	case line == "":
		blockErr = fmt.Errorf("invocation line is required")
	case marker == line:
		blockErr = fmt.Errorf("marker and invocation line must differ")
	}
	if blockErr != nil {
		p.gate(blockErr)
		if reset {
			c.Marker, c.InvocationLine = d.Marker, d.InvocationLine
		}
	}

	if c.Threshold < 1 {
		p.gate(fmt.Errorf("threshold must be at least 1, got %d", c.Threshold))
		if reset {
			c.Threshold = DefaultThreshold
		}
	}
	if c.CheckTimeout < 0 {
		p.other(fmt.Errorf("check timeout must not be negative"))
		if reset {
			c.CheckTimeout = DefaultCheckTimeout
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		p.other(err)
		if reset {
			c.LogLevel = d.LogLevel
		}
	}
}

// Warnings describes settings that load but will not work as intended.
func (c *Config) Warnings() []string {
	var w []string
	if c.SessionUser == "" && c.TerminateCommand == "" {
		w = append(w, "no session user configured: set session_user (or FACEGATE_SESSION_USER) "+
			"or terminate_command, otherwise sessions cannot be terminated")
	}
	return w
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func defaultSessionUser() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}
	return os.Getenv("USER")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
