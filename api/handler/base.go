package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/pkg/logger"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	stdCtx, cancel := context.WithCancel(context.Background())
	if owner := httpcontext.OwnerID(ctx); owner != "" {
		stdCtx = logger.ContextWithOwnerID(stdCtx, owner)
	}
	return stdCtx, cancel
}

// ownerID returns the authenticated owner or writes a 401 and returns "".
func (h baseHandler) ownerID(ctx *fasthttp.RequestCtx) string {
	owner := httpcontext.OwnerID(ctx)
	if owner == "" {
		h.respondError(ctx, domain.ErrUnauthorized)
	}
	return owner
}

// decode unmarshals the JSON body or writes a 400 and returns false.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err))
		return false
	}
	return true
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)

	var meta interface{}
	var dErr *domain.Error
	if errors.As(err, &dErr) && len(dErr.Fields) > 0 {
		meta = transport.FieldErrors{Fields: dErr.Fields}
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.ByteString("path", ctx.Path()),
			zap.ByteString("request_id", ctx.Response.Header.Peek("X-Request-ID")),
			zap.Error(err))
		msg = "internal error"
	}
	h.respondJSON(ctx, status, transport.NewError(code, msg, meta))
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		return http.StatusUnauthorized, string(domain.ErrCodeUnauthorized)
	case domain.IsDomainError(err, domain.ErrCodeForbidden):
		return http.StatusForbidden, string(domain.ErrCodeForbidden)
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		return http.StatusBadRequest, string(domain.ErrCodeInvalid)
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, string(domain.ErrCodeNotFound)
	case domain.IsDomainError(err, domain.ErrCodeConflict):
		return http.StatusConflict, string(domain.ErrCodeConflict)
	default:
		return http.StatusInternalServerError, string(domain.ErrCodeInternal)
	}
}
