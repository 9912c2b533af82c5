package utils

import (
	"context"

	"github.com/javiertrombetta/capif-back-sub001/appctx"
)

var (
	ContextKeyUsuarioId     = appctx.ContextKeyUsuarioId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetUsuarioIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUsuarioId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetUsuarioIdInContext(ctx context.Context, usuarioId int) context.Context {
	return appctx.Set(ctx, ContextKeyUsuarioId, usuarioId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
