package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/pkg/token"
)

// JWTAuth resolves the bearer access token into the request owner id.
func JWTAuth(tokens *token.Manager, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			tokenString := extractToken(ctx)
			if tokenString == "" {
				unauthorized(ctx, "missing bearer token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				if errors.Is(err, token.ErrExpiredToken) {
					unauthorized(ctx, "token expired")
					return
				}
				logger.Warn("invalid jwt token", zap.Error(err))
				unauthorized(ctx, "invalid token")
				return
			}

			httpcontext.SetOwnerID(ctx, claims.UserID)
			next(ctx)
		}
	}
}

func unauthorized(ctx *fasthttp.RequestCtx, msg string) {
	body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeUnauthorized), msg, nil))
	ctx.Response.Header.SetContentType("application/json")
	ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
	ctx.SetStatusCode(http.StatusUnauthorized)
	ctx.SetBody(body)
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := strings.TrimSpace(string(ctx.Request.Header.Peek("Authorization")))
	if header == "" {
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
