package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"siteops/pkg/config"
	"siteops/pkg/db"
)

// Backend invokes named, argument-less remote procedures
type Backend interface {
	Call(ctx context.Context, procedure string) error
	Close()
}

// CallError is a failure reported by the backend for one procedure
type CallError struct {
	Procedure string
	Status    int
	Code      string
	Message   string
	Hint      string
	Err       error
}

// Backend drivers
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown backend driver")

func (e *CallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "rpc %s failed", e.Procedure)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	var extra []string
	if e.Code != "" {
		extra = append(extra, "code "+e.Code)
	}
	if e.Status != 0 {
		extra = append(extra, fmt.Sprintf("HTTP %d", e.Status))
	}
	if len(extra) > 0 {
		b.WriteString(" (" + strings.Join(extra, ", ") + ")")
	}
	if e.Hint != "" {
		b.WriteString("; hint: " + e.Hint)
	}
	return b.String()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// New builds the backend selected by cfg.Driver. Both drivers require the
// validated base address and service key; the postgres driver also needs
// a database connection described by dbCfg.
func New(
	ctx context.Context, cfg config.BackendConfig, dbCfg config.DBConfig,
	logger *zap.Logger,
) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case "", DriverREST:
		return NewPostgRESTBackend(cfg, logger), nil
	case DriverPostgres:
		pool, err := db.NewConnection(ctx, dbCfg, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresBackend(pool, cfg.Schema, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
