package config

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/BurntSushi/toml"
)

// Export returns the effective configuration in file layout with
// credentials stripped from URLs.
func (c *Config) Export() FileConfig {
	return FileConfig{
		CounterPath:      c.CounterPath,
		RegistrationPath: c.RegistrationPath,
		Marker:           c.Marker,
		InvocationLine:   c.InvocationLine,
		UnlockCommand:    c.UnlockCommand,
		CheckTimeout:     formatDuration(c.CheckTimeout),
		SessionUser:      c.SessionUser,
		TerminateCommand: c.TerminateCommand,
		JournalPath:      c.JournalPath,
		NATSURL:          redactURL(c.NATSURL),
		LogLevel:         c.LogLevel,
		Sync: FileSyncConfig{
			Interval:    formatDuration(c.Sync.Interval),
			S3Bucket:    c.Sync.S3Bucket,
			S3Endpoint:  c.Sync.S3Endpoint,
			S3Region:    c.Sync.S3Region,
			S3Key:       c.Sync.S3Key,
			GitRepo:     c.Sync.GitRepo,
			GitFile:     c.Sync.GitFile,
			GitBranch:   c.Sync.GitBranch,
			PostgresURL: redactURL(c.Sync.PostgresURL),
		},
	}
}

// WriteTOML writes the exported configuration as a TOML document that Load
// would accept.
func (c *Config) WriteTOML(w io.Writer) error {
	fmt.Fprintf(w, "# threshold = %d (fixed)\n# grace_interval = %q (fixed)\n\n", c.Threshold, c.GraceInterval.String())
	if err := toml.NewEncoder(w).Encode(c.Export()); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func redactURL(s string) string {
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	return u.Redacted()
}
