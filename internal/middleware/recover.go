package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
)

// AccessLog logs each request and turns panics into a 500 envelope.
func AccessLog(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			started := time.Now()
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic while serving request",
						zap.Any("panic", rec),
						zap.ByteString("path", ctx.Path()))
					body, _ := json.Marshal(transport.NewError(string(domain.ErrCodeInternal), "internal error", nil))
					ctx.Response.Reset()
					ctx.Response.Header.SetContentType("application/json")
					ctx.SetStatusCode(http.StatusInternalServerError)
					ctx.SetBody(body)
				}
				logger.Debug("request served",
					zap.ByteString("method", ctx.Method()),
					zap.ByteString("path", ctx.Path()),
					zap.Int("status", ctx.Response.StatusCode()),
					zap.Duration("took", time.Since(started)),
					zap.ByteString("request_id", ctx.Response.Header.Peek("X-Request-ID")))
			}()
			next(ctx)
		}
	}
}
