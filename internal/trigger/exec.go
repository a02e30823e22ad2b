package trigger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"siteops/internal/config"
	"siteops/internal/rpc"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
)

// MsgMissingConfig is logged when the backend address or key is absent
const MsgMissingConfig = "Missing Supabase configuration"

// BackendFactory builds the backend for a validated configuration
type BackendFactory func(context.Context, *config.Config) (rpc.Backend, error)

// DefaultBackendFactory selects the driver named in cfg.Backend
func DefaultBackendFactory(logger *zap.Logger) BackendFactory {
	return func(ctx context.Context, cfg *config.Config) (rpc.Backend, error) {
		return rpc.New(ctx, cfg.Backend, cfg.DB, logger)
	}
}

// Execute performs one trigger run and returns the process exit code.
// Missing configuration fails before any backend is built; per-procedure
// failures still exit ExitOK.
func Execute(
	ctx context.Context, cfg *config.Config, newBackend BackendFactory,
	logger *zap.Logger, opts ...Option,
) (code int) {
	if err := cfg.Backend.Validate(); err != nil {
		logger.Error(MsgMissingConfig, zap.Error(err))
		return ExitFailure
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Error running scheduled tasks",
				zap.Error(fmt.Errorf("%w: %v", ErrAborted, rec)),
			)
			code = ExitFailure
		}
	}()

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		logger.Error("Error running scheduled tasks", zap.Error(err))
		return ExitFailure
	}
	defer backend.Close()

	if _, err := NewRunner(backend, logger, opts...).Run(ctx); err != nil {
		logger.Error("Error running scheduled tasks", zap.Error(err))
		return ExitFailure
	}
	return ExitOK
}
