// Package launcher starts the model daemon as a detached background process
// and waits until it answers its liveness probe.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"modelgate/internal/common/fsutil"
)

// ErrStartupFailed is returned when the daemon cannot be spawned or never
// becomes reachable within the polling budget.
var ErrStartupFailed = errors.New("daemon startup failed")

// Prober reports whether the daemon answers. *ollama.Client satisfies it.
type Prober interface {
	Alive(ctx context.Context) bool
}

// Result describes how a successful Start reached a live daemon.
type Result string

const (
	// ResultAlreadyUp: the daemon answered before anything was spawned.
	ResultAlreadyUp Result = "already_up"
	// ResultSpawned: this process spawned the daemon and saw it come up.
	ResultSpawned Result = "spawned"
	// ResultWaited: another process held the launch lock; we only polled.
	ResultWaited Result = "waited"
)

// Config configures a Launcher. Zero values take the defaults below.
type Config struct {
	Bin      string        // executable, default "ollama"
	Args     []string      // default ["serve"]
	Attempts int           // probe attempts after spawning, default 30
	Interval time.Duration // pause between attempts, default 1s
	// LockPath is a lock file serialising launches across processes on one
	// host. Empty disables the cross-process lock.
	LockPath string
	Probe    Prober
	Logger   *zerolog.Logger
}

// Launcher spawns the daemon. Concurrent Start calls share one launch.
type Launcher struct {
	cfg   Config
	log   zerolog.Logger
	group singleflight.Group

	// spawn is swapped in tests.
	spawn func(bin string, args []string) (*exec.Cmd, error)
}

// New returns a Launcher with defaults applied.
func New(cfg Config) *Launcher {
	if strings.TrimSpace(cfg.Bin) == "" {
		cfg.Bin = "ollama"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"serve"}
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 30
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	l := &Launcher{cfg: cfg, log: zerolog.Nop(), spawn: startDetached}
	if cfg.Logger != nil {
		l.log = cfg.Logger.With().Str("component", "launcher").Logger()
	}
	return l
}

// Start makes sure the daemon is running, spawning it if needed, and blocks
// until it answers the probe or the attempt budget runs out. Callers that
// arrive while a launch is in progress join it instead of spawning again.
// Cancelling ctx abandons the wait but not the shared launch.
func (l *Launcher) Start(ctx context.Context) (Result, error) {
	if l.cfg.Probe == nil {
		return "", fmt.Errorf("%w: no probe configured", ErrStartupFailed)
	}
	ch := l.group.DoChan("launch", func() (any, error) {
		return l.launch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(Result), nil
	}
}

func (l *Launcher) launch(ctx context.Context) (Result, error) {
	if l.cfg.Probe.Alive(ctx) {
		return ResultAlreadyUp, nil
	}

	if l.cfg.LockPath != "" {
		path, err := fsutil.PrepareFilePath(l.cfg.LockPath)
		if err != nil {
			l.log.Warn().Err(err).Str("lock", l.cfg.LockPath).Msg("launch lock unavailable; spawning without it")
		} else {
			fl := flock.New(path)
			locked, err := fl.TryLock()
			switch {
			case err != nil:
				l.log.Warn().Err(err).Str("lock", path).Msg("launch lock failed; spawning without it")
			case !locked:
				l.log.Info().Str("lock", path).Msg("another process is launching the daemon; waiting")
				if l.poll(ctx, nil) {
					return ResultWaited, nil
				}
				return "", fmt.Errorf("%w: daemon not reachable after %d attempts", ErrStartupFailed, l.cfg.Attempts)
			default:
				defer func() { _ = fl.Unlock() }()
				// The lock holder before us may have finished the job.
				if l.cfg.Probe.Alive(ctx) {
					return ResultAlreadyUp, nil
				}
			}
		}
	}

	cmd, err := l.spawn(l.cfg.Bin, l.cfg.Args)
	if err != nil {
		l.log.Error().Err(err).Str("bin", l.cfg.Bin).Msg("spawn failed")
		return "", fmt.Errorf("%w: %v", ErrStartupFailed, err)
	}
	pid := cmd.Process.Pid
	l.log.Info().Str("bin", l.cfg.Bin).Strs("args", l.cfg.Args).Int("pid", pid).Msg("daemon spawned")

	// Reap the child whenever it exits; an exit before the probe answers is
	// reported to the poll loop.
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	if l.poll(ctx, exited) {
		l.log.Info().Int("pid", pid).Msg("daemon ready")
		return ResultSpawned, nil
	}
	select {
	case werr := <-exited:
		// Someone else may own the port; a live probe still counts.
		if l.cfg.Probe.Alive(ctx) {
			l.log.Info().Int("pid", pid).Msg("spawned daemon exited but another instance answers")
			return ResultAlreadyUp, nil
		}
		l.log.Error().Int("pid", pid).AnErr("exit", werr).Msg("daemon exited before ready")
		return "", fmt.Errorf("%w: daemon exited before ready: %v", ErrStartupFailed, werr)
	default:
	}
	l.log.Error().Int("pid", pid).Int("attempts", l.cfg.Attempts).Msg("daemon not ready in time")
	return "", fmt.Errorf("%w: daemon not reachable after %d attempts", ErrStartupFailed, l.cfg.Attempts)
}

// poll probes up to Attempts times, Interval apart. It returns false early
// when exited fires; the value is put back for the caller.
func (l *Launcher) poll(ctx context.Context, exited chan error) bool {
	t := time.NewTicker(l.cfg.Interval)
	defer t.Stop()
	for i := 0; i < l.cfg.Attempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case werr := <-exited:
			exited <- werr
			return false
		case <-t.C:
		}
		if l.cfg.Probe.Alive(ctx) {
			return true
		}
	}
	return false
}

func startDetached(bin string, args []string) (*exec.Cmd, error) {
	cmd := exec.Command(bin, args...)
	// Output is discarded: the daemon outlives us and must not hold pipes
	// back into this process.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachAttr()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}
