package logger

import (
	"context"

	"github.com/rs/zerolog"

	appCtx "github.com/baechuer/notes-service/internal/pkg/context"
)

// WithCtx returns the package logger enriched with the request id and, once
// authenticated, the user id carried by ctx.
func WithCtx(ctx context.Context) zerolog.Logger {
	c := Logger.With()
	if rid := appCtx.GetRequestID(ctx); rid != "" {
		c = c.Str("request_id", rid)
	}
	if uid := appCtx.GetUserID(ctx); uid != "" {
		c = c.Str("user_id", uid)
	}
	return c.Logger()
}
