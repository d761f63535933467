package log

import (
	"context"

	"github.com/smallbiznis/accreditation/pkg/log/ctxlogger"
	"go.uber.org/zap"
)

// L returns a context-aware logger with correlation and tracing metadata.
func L(ctx context.Context) *zap.Logger {
	return ctxlogger.FromContext(ctx)
}

// Named returns L(ctx) scoped to a component name.
func Named(ctx context.Context, name string) *zap.Logger {
	return L(ctx).Named(name)
}
