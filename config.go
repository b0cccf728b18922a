package goaccount

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goaccount APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Remote    RemoteConfig
	Reauth    ReauthConfig
	Directory DirectoryConfig
	Blob      BlobConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
REMOTE CONFIG
====================================
*/

// RemoteConfig defines a public type used by goaccount APIs.
//
// RemoteConfig bounds every call the engine makes to the identity provider,
// the directory, and the blob store.
type RemoteConfig struct {
	CallTimeout time.Duration
}

/*
====================================
REAUTH CONFIG
====================================
*/

// ReauthConfig defines a public type used by goaccount APIs.
//
// ReauthConfig controls the in-memory reauthentication stamp that gates
// sensitive operations. The stamp never survives a process restart.
type ReauthConfig struct {
	TTL time.Duration
}

// DirectoryConfig defines a public type used by goaccount APIs.
//
// DirectoryConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DirectoryConfig struct {
	RedisPrefix string
}

// BlobConfig defines a public type used by goaccount APIs.
//
// BlobConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BlobConfig struct {
	KeySuffix   string
	ContentType string
}

// AuditConfig defines a public type used by goaccount APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goaccount APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			CallTimeout: 30 * time.Second,
		},
		Reauth: ReauthConfig{
			TTL: 5 * time.Minute,
		},
		Directory: DirectoryConfig{
			RedisPrefix: "dir",
		},
		Blob: BlobConfig{
			KeySuffix:   ".jpg",
			ContentType: "image/jpeg",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Remote.CallTimeout <= 0 {
		return errors.New("Remote CallTimeout must be > 0")
	}
	if c.Remote.CallTimeout > 5*time.Minute {
		return errors.New("Remote CallTimeout must be <= 5m")
	}

	if c.Reauth.TTL <= 0 {
		return errors.New("Reauth TTL must be > 0")
	}
	if c.Reauth.TTL > 24*time.Hour {
		return errors.New("Reauth TTL must be <= 24h")
	}

	if strings.ContainsAny(c.Directory.RedisPrefix, " \t\n") {
		return errors.New("Directory RedisPrefix must not contain whitespace")
	}

	if c.Blob.KeySuffix != "" && !strings.HasPrefix(c.Blob.KeySuffix, ".") {
		return errors.New("Blob KeySuffix must start with '.'")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
