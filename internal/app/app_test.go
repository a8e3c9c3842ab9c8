package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/equipment-registry/internal/config"
	"github.com/equipment-registry/internal/models"
	"github.com/equipment-registry/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupContainer(t *testing.T, cfg *config.Config) *provider.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	cfg.Log.Dir = t.TempDir()
	return provider.NewContainerWithDB(cfg, db)
}

func serviceNames(r *Runner) []string {
	names := make([]string, 0, len(r.Services()))
	for _, svc := range r.Services() {
		names = append(names, svc.Name())
	}
	return names
}

func TestBuildRunnerModes(t *testing.T) {
	t.Run("api", func(t *testing.T) {
		cfg := &config.Config{}
		runner, err := buildRunner(cfg, ModeAPI, setupContainer(t, cfg))
		if err != nil {
			t.Fatalf("build api runner failed: %v", err)
		}
		if got := strings.Join(serviceNames(runner), ","); got != "http" {
			t.Fatalf("services want http got %s", got)
		}
	})

	t.Run("all without queue", func(t *testing.T) {
		cfg := &config.Config{}
		runner, err := buildRunner(cfg, ModeAll, setupContainer(t, cfg))
		if err != nil {
			t.Fatalf("build all runner failed: %v", err)
		}
		if got := strings.Join(serviceNames(runner), ","); got != "http" {
			t.Fatalf("services want http got %s", got)
		}
	})

	t.Run("worker without queue", func(t *testing.T) {
		cfg := &config.Config{}
		if _, err := buildRunner(cfg, ModeWorker, setupContainer(t, cfg)); err == nil {
			t.Fatalf("worker mode without queue should fail")
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := &config.Config{}
		if _, err := buildRunner(cfg, "bogus", setupContainer(t, cfg)); err == nil {
			t.Fatalf("unknown mode should fail")
		}
	})
}

type fakeService struct {
	name     string
	startErr error
	stopped  atomic.Bool
}

func (s *fakeService) Name() string { return s.name }

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.stopped.Store(true)
	return nil
}

func TestRunnerStopsAllOnFailure(t *testing.T) {
	boom := errors.New("boom")
	healthy := &fakeService{name: "healthy"}
	failing := &fakeService{name: "failing", startErr: boom}
	runner := NewRunner(healthy, failing)

	var cleaned atomic.Int32
	runner.OnShutdown(func() { cleaned.Add(1) })

	err := runner.Run(context.Background(), time.Second, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("error want %v got %v", boom, err)
	}
	if !healthy.stopped.Load() || !failing.stopped.Load() {
		t.Fatalf("all services should be stopped")
	}
	if cleaned.Load() != 1 {
		t.Fatalf("cleanup calls want 1 got %d", cleaned.Load())
	}
}

func TestRunnerCanceledContextReturnsNil(t *testing.T) {
	svc := &fakeService{name: "loop"}
	runner := NewRunner(svc)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if err := runner.Run(ctx, time.Second, nil); err != nil {
		t.Fatalf("canceled run should return nil, got %v", err)
	}
	if !svc.stopped.Load() {
		t.Fatalf("service should be stopped")
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "", want: ModeAll},
		{raw: " API ", want: ModeAPI},
		{raw: "worker", want: ModeWorker},
		{raw: "bogus", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("mode %q should fail", tc.raw)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("mode %q want %s got %s err=%v", tc.raw, tc.want, got, err)
		}
	}
}

func TestNormalizeOptions(t *testing.T) {
	opts := normalizeOptions(Options{Mode: " Worker "})
	if opts.Mode != ModeWorker {
		t.Fatalf("mode want worker got %q", opts.Mode)
	}
	if opts.ShutdownTimeout != defaultShutdownTimeout || opts.Logger == nil {
		t.Fatalf("defaults not applied: %+v", opts)
	}

	if err := Run(Options{Config: &config.Config{}, Mode: "bogus"}); err == nil {
		t.Fatalf("run with unknown mode should fail")
	}
}
