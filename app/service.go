package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kilianp07/pyro/config"
	"github.com/kilianp07/pyro/core/base"
	"github.com/kilianp07/pyro/core/factory"
	"github.com/kilianp07/pyro/dev"
	"github.com/kilianp07/pyro/fs/dir"
	"github.com/kilianp07/pyro/infra/logger"
	"github.com/kilianp07/pyro/infra/metrics"
)

// Service wires the registry, its sinks and the Base used by the commands.
type Service struct {
	Base *base.Base
	cfg  *config.Config
	log  logger.Logger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	reg := factory.Default
	reg.SetLogger(logger.New("factory"))
	rec, err := metrics.NewRecorder(reg, cfg.Metrics.Sinks)
	if err != nil {
		return nil, err
	}
	reg.SetRecorder(rec)

	if err := base.RegisterHelpers(reg, cfg.Factory.Root); err != nil {
		return nil, err
	}
	if err := dev.Register(reg, cfg.Factory.Root); err != nil && !errors.Is(err, factory.ErrDuplicate) {
		return nil, err
	}

	s := &Service{Base: base.New(cfg.Factory.Root, reg), cfg: cfg, log: logg}
	if cfg.Debug {
		if _, err := s.Base.NCreate(ctx, "dev.Debug", []any{true, true}, nil); err != nil {
			return nil, fmt.Errorf("debug: %w", err)
		}
	}
	for _, id := range cfg.Factory.Preload {
		if _, err := reg.Resolve(id); err != nil {
			return nil, fmt.Errorf("preload: %w", err)
		}
	}
	logg.Debugf("service ready, root %s, %d types registered", cfg.Factory.Root, len(reg.IDs()))
	return s, nil
}

// InnerPath returns the identifier of rel inside the configured root module.
func (s *Service) InnerPath(rel string) string {
	return s.Base.InnerPath(rel)
}

// Test runs the self-test report.
func (s *Service) Test(ctx context.Context, w io.Writer) error {
	return dev.Report(ctx, w, s.Base)
}

// Clean removes cache artifacts matching the configured patterns below root
// and returns how many entries were removed.
func (s *Service) Clean(ctx context.Context, root string) (int, error) {
	obj, err := s.Base.NCreate(ctx, "fs.dir.Dir", []any{root}, nil)
	if err != nil {
		return 0, err
	}
	d, ok := obj.(*dir.Dir)
	if !ok {
		return 0, fmt.Errorf("clean: %T is not a directory helper", obj)
	}
	n, err := d.Search(ctx, s.cfg.Clean.Patterns, d.Remove)
	if err != nil {
		return n, err
	}
	s.log.Infof("clean %s: %d entries removed", d.Root, n)
	return n, nil
}
