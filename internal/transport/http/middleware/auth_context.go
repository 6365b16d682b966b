package middleware

import (
	"context"

	appCtx "github.com/baechuer/notes-service/internal/pkg/context"
)

func WithUser(ctx context.Context, userID, email string) context.Context {
	return appCtx.WithUser(ctx, userID, email)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v := appCtx.GetUserID(ctx)
	return v, v != ""
}

func EmailFromContext(ctx context.Context) (string, bool) {
	v := appCtx.GetEmail(ctx)
	return v, v != ""
}
