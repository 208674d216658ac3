package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	appLogger "github.com/fastygo/todo/pkg/logger"
)

// Key represents a context value key exported for reuse.
type Key string

const (
	KeyRemoteAddr Key = "remote_addr"
	KeyUserAgent  Key = "user_agent"
)

// UserValueOwner is the fasthttp user value holding the authenticated owner id.
const UserValueOwner = "owner_id"

// Adapter converts fasthttp.RequestCtx into a stdlib context with deadlines and metadata.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		timeout: timeout,
	}
}

// Attach creates a context bounded by the adapter timeout and carrying request metadata.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	reqID := getRequestID(ctx)
	stdCtx = appLogger.ContextWithRequestID(stdCtx, reqID)
	ctx.Response.Header.Set("X-Request-ID", reqID)

	if owner := OwnerID(ctx); owner != "" {
		stdCtx = appLogger.ContextWithOwnerID(stdCtx, owner)
	}
	if remoteAddr := ctx.RemoteAddr(); remoteAddr != nil {
		stdCtx = context.WithValue(stdCtx, KeyRemoteAddr, remoteAddr.String())
	}
	if ua := string(ctx.Request.Header.UserAgent()); ua != "" {
		stdCtx = context.WithValue(stdCtx, KeyUserAgent, ua)
	}

	return stdCtx, cancel
}

// SetOwnerID stores the authenticated owner on the request.
func SetOwnerID(ctx *fasthttp.RequestCtx, ownerID string) {
	ctx.SetUserValue(UserValueOwner, ownerID)
}

// OwnerID returns the owner set by the auth middleware, or "".
func OwnerID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.UserValue(UserValueOwner).(string)
	return id
}

func getRequestID(ctx *fasthttp.RequestCtx) string {
	if ctx == nil {
		return uuid.NewString()
	}
	if header := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID"))); header != "" && len(header) <= 128 {
		return header
	}
	return uuid.NewString()
}
