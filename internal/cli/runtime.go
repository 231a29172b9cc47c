package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hupe1980/agentstate"
	"github.com/hupe1980/agentstate/config"
	"github.com/hupe1980/agentstate/core"
	"github.com/hupe1980/agentstate/logging"
)

// runtime is what every subcommand needs: the config, an open repository
// and a logger.
type runtime struct {
	cfg    *config.Config
	repo   core.SessionRepository
	logger *logging.StructuredLogger
	close  config.CloseFunc
}

// loadConfig reads the config file. A missing default file falls back to
// the offline defaults; a missing explicit file is an error.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.ReadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if path == config.DefaultFile && errors.Is(err, fs.ErrNotExist) {
		return config.DefaultConfig(), nil
	}
	return nil, err
}

func openRuntime(ctx context.Context, opts *rootOptions) (*runtime, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	repo, closeFn, err := config.OpenRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s repository: %w", cfg.Repository.Backend, err)
	}

	return &runtime{
		cfg:    cfg,
		repo:   repo,
		logger: logger.WithComponent("cli"),
		close:  closeFn,
	}, nil
}

// openSession opens sessionID on the runtime's repository. An empty id
// starts a new session.
func (r *runtime) openSession(ctx context.Context, sessionID string) (*agentstate.Session, error) {
	return agentstate.New(ctx, sessionID, func(o *agentstate.Options) {
		o.Repository = r.repo
		o.Logger = r.logger
	})
}

// requireAgent fails when agentID has no snapshot in sessionID. Read-only
// commands use it so they never create sessions or agents as a side effect.
func (r *runtime) requireAgent(ctx context.Context, sessionID, agentID string) (*core.SessionAgent, error) {
	s, err := r.repo.ReadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	sa, err := r.repo.ReadAgent(ctx, sessionID, agentID)
	if err != nil {
		return nil, err
	}
	if sa == nil {
		return nil, fmt.Errorf("agent %q not found in session %q", agentID, sessionID)
	}
	return sa, nil
}
