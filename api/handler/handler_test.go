package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	fastrouter "github.com/fasthttp/router"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/monitor"
	"github.com/fastygo/todo/pkg/httpcontext"
	"github.com/fastygo/todo/repository/boltdb"
	redisRepo "github.com/fastygo/todo/repository/redis"
	"github.com/fastygo/todo/usecase"
	taskUC "github.com/fastygo/todo/usecase/task"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Meta   json.RawMessage `json:"meta"`
}

type staticStatus monitor.Status

func (s staticStatus) GetStatus() monitor.Status { return monitor.Status(s) }

// asOwner stands in for the JWT middleware.
func asOwner(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if owner := string(ctx.Request.Header.Peek("X-Test-Owner")); owner != "" {
			httpcontext.SetOwnerID(ctx, owner)
		}
		next(ctx)
	}
}

func newRouter(t *testing.T) *fastrouter.Router {
	t.Helper()
	store, err := boltdb.Open(filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	feed := redisRepo.NewActivityRepository(client, 100)

	uc := taskUC.New(boltdb.NewTaskRepository(store), nil, nil)
	dispatcher := usecase.NewDispatcher()
	uc.RegisterBatchCommands(dispatcher)
	adapter := httpcontext.NewAdapter(time.Second)

	require.NoError(t, feed.Append(context.Background(), domain.Activity{ID: "a1", OwnerID: "alice", Kind: domain.ActivityCreated}))

	tasks := NewTaskHandler(uc, dispatcher, adapter, nil)
	activity := NewActivityHandler(feed, 10, adapter, nil)
	health := NewHealthHandler(staticStatus{Components: map[string]bool{"bolt": true, "redis": false}}, adapter, nil)

	r := fastrouter.New()
	r.GET("/health", health.Check)
	r.GET("/api/v1/tasks", asOwner(tasks.ListTasks))
	r.POST("/api/v1/tasks", asOwner(tasks.CreateTask))
	r.GET("/api/v1/tasks/stats", asOwner(tasks.Statistics))
	r.GET("/api/v1/tasks/categories", asOwner(tasks.Categories))
	r.POST("/api/v1/tasks/batch", asOwner(tasks.Batch))
	r.GET("/api/v1/tasks/{id}", asOwner(tasks.GetTask))
	r.PATCH("/api/v1/tasks/{id}", asOwner(tasks.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", asOwner(tasks.DeleteTask))
	r.POST("/api/v1/tasks/{id}/toggle", asOwner(tasks.ToggleTask))
	r.POST("/api/v1/tasks/{id}/restore", asOwner(tasks.RestoreTask))
	r.GET("/api/v1/recycle-bin", asOwner(tasks.RecycleBin))
	r.DELETE("/api/v1/recycle-bin", asOwner(tasks.EmptyRecycleBin))
	r.GET("/api/v1/activity", asOwner(activity.Recent))
	return r
}

func do(t *testing.T, r *fastrouter.Router, method, uri, owner, body string) (int, envelope) {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if owner != "" {
		ctx.Request.Header.Set("X-Test-Owner", owner)
	}
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}

	r.Handler(&ctx)

	var env envelope
	if raw := ctx.Response.Body(); len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return ctx.Response.StatusCode(), env
}

func createTask(t *testing.T, r *fastrouter.Router, owner, body string) domain.Task {
	t.Helper()
	status, env := do(t, r, fasthttp.MethodPost, "/api/v1/tasks", owner, body)
	require.Equal(t, http.StatusCreated, status, env.Error)
	var task domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func TestCreateAndListTasks(t *testing.T) {
	r := newRouter(t)
	work := createTask(t, r, "alice", `{"title":"report","category":"work","priority":2}`)
	createTask(t, r, "alice", `{"title":"dishes","category":"home"}`)

	status, env := do(t, r, fasthttp.MethodGet, "/api/v1/tasks?category=work&page_size=5", "alice", "")
	require.Equal(t, http.StatusOK, status)
	var page domain.TaskPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 5, page.PageSize)
	require.Len(t, page.Items, 1)
	assert.Equal(t, work.ID, page.Items[0].ID)

	status, env = do(t, r, fasthttp.MethodGet, "/api/v1/tasks/categories", "alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["home","work"]`, string(env.Data))
}

func TestCreateTaskValidationErrorListsFields(t *testing.T) {
	r := newRouter(t)

	status, env := do(t, r, fasthttp.MethodPost, "/api/v1/tasks", "alice", `{"title":"","priority":7}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(domain.ErrCodeInvalid), env.Code)

	var meta struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Contains(t, meta.Fields, "title")
	assert.Contains(t, meta.Fields, "priority")

	status, _ = do(t, r, fasthttp.MethodPost, "/api/v1/tasks", "alice", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListRejectsMalformedQuery(t *testing.T) {
	r := newRouter(t)

	status, env := do(t, r, fasthttp.MethodGet, "/api/v1/tasks?page=abc&is_completed=maybe", "alice", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(env.Meta), "page")
	assert.Contains(t, string(env.Meta), "is_completed")

	status, _ = do(t, r, fasthttp.MethodGet, "/api/v1/tasks?page_size=500", "alice", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMissingOwnerIsUnauthorized(t *testing.T) {
	r := newRouter(t)

	status, env := do(t, r, fasthttp.MethodGet, "/api/v1/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(domain.ErrCodeUnauthorized), env.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	r := newRouter(t)
	task := createTask(t, r, "alice", `{"title":"cycle"}`)
	path := "/api/v1/tasks/" + task.ID

	status, _ := do(t, r, fasthttp.MethodPost, path+"/toggle", "alice", "")
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, r, fasthttp.MethodGet, path, "alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"is_completed":true`)

	status, _ = do(t, r, fasthttp.MethodPost, path+"/toggle", "bob", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, r, fasthttp.MethodDelete, path, "alice", "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, r, fasthttp.MethodDelete, path, "alice", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(t, r, fasthttp.MethodGet, path, "alice", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, env = do(t, r, fasthttp.MethodGet, "/api/v1/recycle-bin", "alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), task.ID)

	status, _ = do(t, r, fasthttp.MethodPost, path+"/restore", "alice", "")
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, r, fasthttp.MethodPatch, path, "alice", `{"title":"renamed","is_completed":false}`)
	require.Equal(t, http.StatusOK, status)
	var updated domain.Task
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "renamed", updated.Title)
	assert.False(t, updated.IsCompleted())
}

func TestBatchEndpoint(t *testing.T) {
	r := newRouter(t)
	a := createTask(t, r, "alice", `{"title":"a"}`)
	b := createTask(t, r, "alice", `{"title":"b"}`)

	status, env := do(t, r, fasthttp.MethodPost, "/api/v1/tasks/batch", "alice",
		`{"action":"delete","ids":["`+a.ID+`","`+b.ID+`","missing"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"action":"delete","affected":2}`, string(env.Data))

	status, env = do(t, r, fasthttp.MethodDelete, "/api/v1/recycle-bin", "alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"action":"purge","affected":2}`, string(env.Data))

	status, _ = do(t, r, fasthttp.MethodPost, "/api/v1/tasks/batch", "alice", `{"action":"explode","ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestStatisticsEndpoint(t *testing.T) {
	r := newRouter(t)
	task := createTask(t, r, "alice", `{"title":"a","category":"work"}`)
	createTask(t, r, "alice", `{"title":"b"}`)
	do(t, r, fasthttp.MethodPost, "/api/v1/tasks/"+task.ID+"/toggle", "alice", "")

	status, env := do(t, r, fasthttp.MethodGet, "/api/v1/tasks/stats", "alice", "")
	require.Equal(t, http.StatusOK, status)
	var stats domain.Statistics
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.CompletedCount)
	assert.InDelta(t, 50.0, stats.CompletionRate, 1e-9)
	assert.Equal(t, 1, stats.CurrentCompletionStreak)
}

func TestActivityEndpointIsOwnerScoped(t *testing.T) {
	r := newRouter(t)

	status, env := do(t, r, fasthttp.MethodGet, "/api/v1/activity?limit=5", "alice", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"a1"`)

	status, env = do(t, r, fasthttp.MethodGet, "/api/v1/activity", "bob", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHealthReportsDegradedDependencies(t *testing.T) {
	r := newRouter(t)

	status, env := do(t, r, fasthttp.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEGRADED", env.Code)
	assert.Contains(t, string(env.Meta), `"redis":false`)
}
