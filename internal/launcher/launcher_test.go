package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

// TestHelperProcess is not a real test; it stands in for the daemon binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("MODELGATE_HELPER_PROCESS") != "1" {
		return
	}
	mode := os.Args[len(os.Args)-1]
	switch mode {
	case "exit":
		os.Exit(3)
	case "sleep":
		time.Sleep(3 * time.Second)
	}
	os.Exit(0)
}

func helperSpawn(mode string, count *int32) func(string, []string) (*exec.Cmd, error) {
	return func(string, []string) (*exec.Cmd, error) {
		atomic.AddInt32(count, 1)
		cmd := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", mode)
		cmd.Env = append(os.Environ(), "MODELGATE_HELPER_PROCESS=1")
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmd, nil
	}
}

// probe answers alive once `after` calls have been made following arm().
type probe struct {
	armed atomic.Bool
	calls atomic.Int32
	after int32
	never bool
}

func (p *probe) arm() { p.armed.Store(true) }

func (p *probe) Alive(context.Context) bool {
	if p.never || !p.armed.Load() {
		return false
	}
	return p.calls.Add(1) >= p.after
}

func newTestLauncher(p *probe, attempts int) *Launcher {
	return New(Config{Probe: p, Attempts: attempts, Interval: 10 * time.Millisecond})
}

func TestStart_AlreadyUp(t *testing.T) {
	p := &probe{after: 1}
	p.arm()
	l := newTestLauncher(p, 5)
	var spawned int32
	l.spawn = helperSpawn("sleep", &spawned)
	res, err := l.Start(context.Background())
	if err != nil || res != ResultAlreadyUp {
		t.Fatalf("res=%q err=%v", res, err)
	}
	if spawned != 0 {
		t.Fatalf("expected no spawn, got %d", spawned)
	}
}

func TestStart_SpawnsAndWaits(t *testing.T) {
	p := &probe{after: 3}
	l := newTestLauncher(p, 20)
	var spawned int32
	inner := helperSpawn("sleep", &spawned)
	l.spawn = func(b string, a []string) (*exec.Cmd, error) {
		cmd, err := inner(b, a)
		p.arm()
		return cmd, err
	}
	res, err := l.Start(context.Background())
	if err != nil || res != ResultSpawned {
		t.Fatalf("res=%q err=%v", res, err)
	}
	if spawned != 1 {
		t.Fatalf("expected one spawn, got %d", spawned)
	}
}

func TestStart_EarlyExit(t *testing.T) {
	p := &probe{never: true}
	l := New(Config{Probe: p, Attempts: 500, Interval: 10 * time.Millisecond})
	var spawned int32
	l.spawn = helperSpawn("exit", &spawned)
	start := time.Now()
	_, err := l.Start(context.Background())
	if !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("expected ErrStartupFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "exited before ready") {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("early exit not detected promptly")
	}
}

func TestStart_AttemptsExhausted(t *testing.T) {
	p := &probe{never: true}
	l := newTestLauncher(p, 3)
	var spawned int32
	l.spawn = helperSpawn("sleep", &spawned)
	_, err := l.Start(context.Background())
	if !errors.Is(err, ErrStartupFailed) || !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStart_SpawnError(t *testing.T) {
	l := newTestLauncher(&probe{never: true}, 3)
	l.spawn = func(string, []string) (*exec.Cmd, error) { return nil, errors.New("exec: not found") }
	if _, err := l.Start(context.Background()); !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("expected ErrStartupFailed, got %v", err)
	}
}

func TestStart_RealBinaryMissing(t *testing.T) {
	l := New(Config{Bin: filepath.Join(t.TempDir(), "no-such-daemon"), Probe: &probe{never: true}, Attempts: 1, Interval: time.Millisecond})
	if _, err := l.Start(context.Background()); !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("expected ErrStartupFailed, got %v", err)
	}
}

func TestStart_ConcurrentCallersShareOneLaunch(t *testing.T) {
	p := &probe{after: 2}
	l := New(Config{Probe: p, Attempts: 50, Interval: 20 * time.Millisecond})
	var spawned int32
	inner := helperSpawn("sleep", &spawned)
	l.spawn = func(b string, a []string) (*exec.Cmd, error) {
		cmd, err := inner(b, a)
		p.arm()
		return cmd, err
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Start(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	if n := atomic.LoadInt32(&spawned); n != 1 {
		t.Fatalf("expected exactly one spawn, got %d", n)
	}
}

func TestStart_LockHeldElsewhereOnlyPolls(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "launch.lock")
	other := flock.New(lockPath)
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	defer other.Unlock()

	p := &probe{after: 3}
	p.arm()
	p.calls.Store(-10) // first probe in launch() must fail
	l := New(Config{Probe: p, Attempts: 50, Interval: 5 * time.Millisecond, LockPath: lockPath})
	var spawned int32
	l.spawn = helperSpawn("sleep", &spawned)
	res, err := l.Start(context.Background())
	if err != nil || res != ResultWaited {
		t.Fatalf("res=%q err=%v", res, err)
	}
	if spawned != 0 {
		t.Fatalf("lock loser must not spawn, got %d", spawned)
	}
}

func TestStart_LockAcquiredSpawns(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "sub", "launch.lock")
	p := &probe{after: 2}
	l := New(Config{Probe: p, Attempts: 50, Interval: 5 * time.Millisecond, LockPath: lockPath})
	var spawned int32
	inner := helperSpawn("sleep", &spawned)
	l.spawn = func(b string, a []string) (*exec.Cmd, error) {
		cmd, err := inner(b, a)
		p.arm()
		return cmd, err
	}
	res, err := l.Start(context.Background())
	if err != nil || res != ResultSpawned {
		t.Fatalf("res=%q err=%v", res, err)
	}
	// Lock released after the launch.
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil || !ok {
		t.Fatalf("lock should be free after launch: ok=%v err=%v", ok, err)
	}
	_ = fl.Unlock()
}

func TestStart_ContextCancelled(t *testing.T) {
	l := New(Config{Probe: &probe{never: true}, Attempts: 1000, Interval: 10 * time.Millisecond})
	var spawned int32
	l.spawn = helperSpawn("sleep", &spawned)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStart_NoProbe(t *testing.T) {
	if _, err := New(Config{}).Start(context.Background()); !errors.Is(err, ErrStartupFailed) {
		t.Fatalf("expected ErrStartupFailed, got %v", err)
	}
}
