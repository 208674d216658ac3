package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todo/api/transport"
	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/usecase"
	taskUC "github.com/fastygo/todo/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc       *taskUC.UseCase
	dispatch *usecase.Dispatcher
}

func NewTaskHandler(uc *taskUC.UseCase, dispatch *usecase.Dispatcher, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		dispatch:    dispatch,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	query, err := parseTaskQuery(ctx.QueryArgs())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	page, err := h.uc.ListTasks(stdCtx, owner, query)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, page)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	var req transport.TaskCreateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, owner, req.Draft())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, owner, taskID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	var req transport.TaskUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateTask(stdCtx, owner, taskID(ctx), req.Patch())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Toggle completion
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(ctx *fasthttp.RequestCtx) {
	h.lifecycle(ctx, h.uc.ToggleCompletion)
}

// @Summary Move task to the recycle bin
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	h.lifecycle(ctx, h.uc.SoftDeleteTask)
}

// @Summary Restore task from the recycle bin
// @Tags tasks
// @Router /api/v1/tasks/{id}/restore [post]
func (h *TaskHandler) RestoreTask(ctx *fasthttp.RequestCtx) {
	h.lifecycle(ctx, h.uc.RestoreTask)
}

// @Summary Delete task permanently
// @Tags tasks
// @Router /api/v1/tasks/{id}/permanent [delete]
func (h *TaskHandler) PurgeTask(ctx *fasthttp.RequestCtx) {
	h.lifecycle(ctx, h.uc.PermanentDeleteTask)
}

// @Summary Run a batch action
// @Tags tasks
// @Router /api/v1/tasks/batch [post]
func (h *TaskHandler) Batch(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	var req transport.BatchRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	affected, err := h.dispatch.Execute(stdCtx, req.Action, usecase.BatchCommand{
		OwnerID:   owner,
		IDs:       req.IDs,
		Completed: req.Completed,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.BatchResult{Action: req.Action, Affected: affected})
}

// @Summary Task statistics
// @Tags tasks
// @Router /api/v1/tasks/stats [get]
func (h *TaskHandler) Statistics(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.GetStatistics(stdCtx, owner)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

// @Summary Distinct categories
// @Tags tasks
// @Router /api/v1/tasks/categories [get]
func (h *TaskHandler) Categories(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	categories, err := h.uc.ListCategories(stdCtx, owner)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	h.respondSuccess(ctx, http.StatusOK, categories)
}

// @Summary List the recycle bin
// @Tags recycle-bin
// @Router /api/v1/recycle-bin [get]
func (h *TaskHandler) RecycleBin(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	query, err := parseTaskQuery(ctx.QueryArgs())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	page, err := h.uc.ListRecycleBin(stdCtx, owner, query)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, page)
}

// @Summary Empty the recycle bin
// @Tags recycle-bin
// @Router /api/v1/recycle-bin [delete]
func (h *TaskHandler) EmptyRecycleBin(ctx *fasthttp.RequestCtx) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	removed, err := h.uc.EmptyRecycleBin(stdCtx, owner)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.BatchResult{Action: taskUC.ActionPurge, Affected: removed})
}

type lifecycleFunc func(ctx context.Context, ownerID, id string) (bool, error)

// lifecycle runs a single-task transition. A task that is missing, foreign or in the
// wrong state answers 404.
func (h *TaskHandler) lifecycle(ctx *fasthttp.RequestCtx, op lifecycleFunc) {
	owner := h.ownerID(ctx)
	if owner == "" {
		return
	}
	id := taskID(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	changed, err := op(stdCtx, owner, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if !changed {
		h.respondError(ctx, domain.ErrTaskNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.Outcome{ID: id, Changed: true})
}

func taskID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("id").(string)
	return id
}
