package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"task-ledger/internal/api"
	"task-ledger/internal/chain"
	"task-ledger/internal/config"
	"task-ledger/internal/domain"
	"task-ledger/internal/logging"
	"task-ledger/internal/repository/sqlite"
	"task-ledger/internal/rpcclient"
	"task-ledger/internal/server"
	"task-ledger/internal/validation"
)

// runtime builds the logger, repository and node on first use, after the
// root command has applied flag overrides to the configuration
type runtime struct {
	env    config.Environment
	logger *zap.SugaredLogger
	repo   sqlite.Repository
	node   *chain.Node
}

func newRuntime(env config.Environment) *runtime {
	return &runtime{env: env}
}

// Bridge opens a wallet bridge against a remote node when TL_NODE_URL is
// set, otherwise against a node on the local database
func (r *runtime) Bridge(ctx context.Context, cfg *config.Config) (api.API, error) {
	logger, err := r.loggerFor(cfg)
	if err != nil {
		return nil, err
	}

	var account domain.Address
	if cfg.Ledger.Account != "" {
		if account, err = domain.ParseAddress(cfg.Ledger.Account); err != nil {
			return nil, err
		}
	}

	var backend api.Backend
	if cfg.UsesRemoteNode() {
		logger.Debugw("using remote node", "url", cfg.Node.URL)
		backend = rpcclient.New(cfg.Node.URL, rpcclient.Options{
			PollInterval: cfg.Node.PollInterval,
			Logger:       logger,
		})
	} else {
		node, err := r.startNode(cfg, logger)
		if err != nil {
			return nil, err
		}
		backend = node
	}

	return api.New(backend, account, api.Options{
		ChainID:   cfg.Ledger.ChainID,
		Validator: taskValidator(cfg),
		Logger:    logger,
	}), nil
}

// Serve runs a local node behind the HTTP API until ctx is done
func (r *runtime) Serve(ctx context.Context, cfg *config.Config) error {
	logger, err := r.loggerFor(cfg)
	if err != nil {
		return err
	}
	node, err := r.startNode(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(node, server.Options{
		Addr:      cfg.Server.Addr,
		Mode:      cfg.Server.Mode,
		Logger:    logger,
		Validator: taskValidator(cfg),
	})
	return srv.Run(ctx)
}

// Close stops the node and releases the database
func (r *runtime) Close() {
	if r.node != nil {
		r.node.Stop()
	}
	if r.repo != nil {
		if err := r.repo.Close(); err != nil && r.logger != nil {
			r.logger.Warnw("failed to close database", "error", err)
		}
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}

func (r *runtime) loggerFor(cfg *config.Config) (*zap.SugaredLogger, error) {
	if r.logger != nil {
		return r.logger, nil
	}

	opts := logging.DefaultOptions()
	opts.Level = cfg.Logging.Level
	if cfg.Application.Verbose && opts.Level == "warn" {
		opts.Level = "info"
	}
	opts.File = cfg.Logging.File
	opts.MaxSizeMB = cfg.Logging.MaxSizeMB
	opts.MaxBackups = cfg.Logging.MaxBackups
	opts.MaxAgeDays = cfg.Logging.MaxAgeDays

	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	r.logger = logger
	return logger, nil
}

func (r *runtime) startNode(cfg *config.Config, logger *zap.SugaredLogger) (*chain.Node, error) {
	if r.node != nil {
		return r.node, nil
	}

	repo, err := config.NewRepositoryFactory(r.env, cfg).CreateRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	node := chain.NewNode(repo, chain.Options{
		ChainID:   cfg.Node.ChainID,
		QueueSize: cfg.Node.QueueSize,
		Logger:    logger,
	})
	// The worker outlives any single command context; Close stops it
	node.Start(context.Background())

	r.repo = repo
	r.node = node
	return node, nil
}

func taskValidator(cfg *config.Config) *validation.TaskValidator {
	return validation.NewTaskValidatorWithConfig(validation.NewValidatorWithConfig(cfg))
}
