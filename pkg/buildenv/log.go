package buildenv

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type logKey struct{}

// Log retrieves the logger attached to the given context
func Log(ctx context.Context) *zerolog.Logger {
	logger := ctx.Value(logKey{})
	if logger == nil {
		panic("Logger is missing in context!")
	}

	return logger.(*zerolog.Logger)
}

// WithLogger attaches the given logger to the context
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, logKey{}, logger)
}

// Reporter centralizes the decision between raising errors and terminating
// the process. Callers like the test suite set Traceback to receive errors
// instead of an os.Exit(1).
type Reporter struct {
	Traceback bool
}

func (r *Reporter) Info(ctx context.Context, format string, args ...interface{}) {
	Log(ctx).Info().Msgf(format, args...)
}

func (r *Reporter) Warn(ctx context.Context, format string, args ...interface{}) {
	Log(ctx).Warn().Msgf(format, args...)
}

// Fail reports a fatal condition. In traceback mode the condition is
// returned as an error; otherwise it's logged and the process exits with a
// nonzero status.
func (r *Reporter) Fail(ctx context.Context, format string, args ...interface{}) error {
	if r.Traceback {
		return eris.Errorf(format, args...)
	}

	Log(ctx).Error().Msgf(format, args...)
	os.Exit(1)
	return nil
}
