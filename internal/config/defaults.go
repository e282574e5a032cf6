package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by WithDefaults when the corresponding field is unset.
const (
	DefaultAddr                   = ":5000"
	DefaultDaemonURL              = "http://localhost:11434"
	DefaultDaemonBin              = "ollama"
	DefaultModel                  = "gemma:2b"
	DefaultProbeTimeoutMS         = 2000
	DefaultCatalogTimeoutSeconds  = 5
	DefaultLaunchAttempts         = 30
	DefaultLaunchIntervalMS       = 1000
	DefaultFetchTimeoutSeconds    = 600
	DefaultGenerateTimeoutSeconds = 120
	DefaultMaxBodyBytes           = 1 << 20
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "auto"
)

// WithDefaults returns a copy of c with every unset field filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DaemonURL == "" {
		c.DaemonURL = DefaultDaemonURL
	}
	c.DaemonURL = strings.TrimRight(c.DaemonURL, "/")
	if c.DaemonBin == "" {
		c.DaemonBin = DefaultDaemonBin
	}
	if len(c.DaemonArgs) == 0 {
		c.DaemonArgs = []string{"serve"}
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.ProbeTimeoutMS <= 0 {
		c.ProbeTimeoutMS = DefaultProbeTimeoutMS
	}
	if c.CatalogTimeoutSeconds <= 0 {
		c.CatalogTimeoutSeconds = DefaultCatalogTimeoutSeconds
	}
	if c.LaunchAttempts <= 0 {
		c.LaunchAttempts = DefaultLaunchAttempts
	}
	if c.LaunchIntervalMS <= 0 {
		c.LaunchIntervalMS = DefaultLaunchIntervalMS
	}
	if c.LaunchLockPath == "" {
		c.LaunchLockPath = filepath.Join(os.TempDir(), "modelgate-launch.lock")
	}
	if c.FetchTimeoutSeconds <= 0 {
		c.FetchTimeoutSeconds = DefaultFetchTimeoutSeconds
	}
	if c.GenerateTimeoutSeconds <= 0 {
		c.GenerateTimeoutSeconds = DefaultGenerateTimeoutSeconds
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.CORSEnabled == nil {
		c.CORSEnabled = boolPtr(true)
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.BootstrapOnStart == nil {
		c.BootstrapOnStart = boolPtr(true)
	}
	return c
}

// ApplyEnv overlays MODELGATE_* environment variables onto c. Unset or
// unparsable variables leave the field untouched.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	num64 := func(key string, dst *int64) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst **bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = boolPtr(b)
			}
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = SplitCSV(v)
		}
	}
	str("MODELGATE_ADDR", &c.Addr)
	str("MODELGATE_DAEMON_URL", &c.DaemonURL)
	str("MODELGATE_DAEMON_BIN", &c.DaemonBin)
	list("MODELGATE_DAEMON_ARGS", &c.DaemonArgs)
	str("MODELGATE_MODEL", &c.Model)
	str("MODELGATE_INSTANCE_ID", &c.InstanceID)
	num("MODELGATE_PROBE_TIMEOUT_MS", &c.ProbeTimeoutMS)
	num("MODELGATE_CATALOG_TIMEOUT_SECONDS", &c.CatalogTimeoutSeconds)
	num("MODELGATE_LAUNCH_ATTEMPTS", &c.LaunchAttempts)
	num("MODELGATE_LAUNCH_INTERVAL_MS", &c.LaunchIntervalMS)
	str("MODELGATE_LAUNCH_LOCK_PATH", &c.LaunchLockPath)
	num("MODELGATE_FETCH_TIMEOUT_SECONDS", &c.FetchTimeoutSeconds)
	num("MODELGATE_GENERATE_TIMEOUT_SECONDS", &c.GenerateTimeoutSeconds)
	num64("MODELGATE_MAX_BODY_BYTES", &c.MaxBodyBytes)
	flag("MODELGATE_CORS_ENABLED", &c.CORSEnabled)
	list("MODELGATE_CORS_ORIGINS", &c.CORSOrigins)
	str("MODELGATE_LOG_LEVEL", &c.LogLevel)
	str("MODELGATE_LOG_FORMAT", &c.LogFormat)
	flag("MODELGATE_BOOTSTRAP_ON_START", &c.BootstrapOnStart)
	return c
}

// ProbeTimeout and friends convert the integer config fields to durations.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}

func (c Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutSeconds) * time.Second
}

func (c Config) LaunchInterval() time.Duration {
	return time.Duration(c.LaunchIntervalMS) * time.Millisecond
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c Config) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
