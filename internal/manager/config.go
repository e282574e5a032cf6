package manager

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"modelgate/internal/launcher"
	"modelgate/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultModel        = "gemma:2b"
	defaultFetchTimeout = 10 * time.Minute
)

// Prober reports daemon liveness.
type Prober interface {
	Alive(ctx context.Context) bool
}

// Launcher brings the daemon up.
type Launcher interface {
	Start(ctx context.Context) (launcher.Result, error)
}

// Catalog answers whether a model is held locally by the daemon. Lookup
// reports query failures; HasModel folds them into false.
type Catalog interface {
	Lookup(ctx context.Context, model string) (bool, error)
	HasModel(ctx context.Context, model string) bool
}

// Fetcher downloads a model into the daemon.
type Fetcher interface {
	Pull(ctx context.Context, model string, onProgress func(types.PullProgress)) error
}

// Generator produces a completion.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ManagerConfig encapsulates all tunables and collaborators for Manager
// construction. *ollama.Client implements Prober, Fetcher and Generator;
// *launcher.Launcher implements Launcher; *registry.Catalog implements Catalog.
type ManagerConfig struct {
	Model      string
	InstanceID string

	Probe     Prober
	Launcher  Launcher
	Catalog   Catalog
	Fetcher   Fetcher
	Generator Generator

	// FetchTimeout bounds a background download.
	FetchTimeout time.Duration
	Publisher    EventPublisher
	Logger       *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	cfg.InstanceID = ResolveInstanceID(cfg.InstanceID)
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	m := &Manager{
		model:      cfg.Model,
		instanceID: cfg.InstanceID,
		probe:      cfg.Probe,
		launcher:   cfg.Launcher,
		catalog:    cfg.Catalog,
		fetcher:    cfg.Fetcher,
		generator:  cfg.Generator,
		fetchTO:    cfg.FetchTimeout,
		publisher:  cfg.Publisher,
		guard:      NewFetchGuard(),
		log:        zerolog.Nop(),
		state:      StateUninitialized,
		since:      time.Now(),
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Str("model", cfg.Model).Logger()
	}
	m.baseCtx, m.cancel = context.WithCancel(context.Background())
	observeState(m.state)
	return m
}

// ResolveInstanceID returns configured if set, else the hostname, else a
// random UUID.
func ResolveInstanceID(configured string) string {
	if id := strings.TrimSpace(configured); id != "" {
		return id
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return uuid.NewString()
}
