package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/repository"
)

const maxActivityLimit = 200

type ActivityHandler struct {
	baseHandler
	feed         repository.ActivityRepository
	defaultLimit int
}

func NewActivityHandler(feed repository.ActivityRepository, defaultLimit int, adapter *httpcontext.Adapter, logger *zap.Logger) *ActivityHandler {
	if defaultLimit <= 0 || defaultLimit > maxActivityLimit {
		defaultLimit = 50
	}
	return &ActivityHandler{
		baseHandler:  newBaseHandler(adapter, logger),
		feed:         feed,
		defaultLimit: defaultLimit,
	}
}

// @Summary Recent task activity, newest first
// @Tags activity
// @Router /api/v1/activity [get]
func (h *ActivityHandler) Recent(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	limit := parseLimit(ctx.QueryArgs(), h.defaultLimit, maxActivityLimit)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.feed.Recent(stdCtx, owner, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if items == nil {
		items = []domain.Activity{}
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}
