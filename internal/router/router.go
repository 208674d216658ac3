package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/todo/api/handler"
)

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Profile  *apiHandler.ProfileHandler
	Task     *apiHandler.TaskHandler
	Activity *apiHandler.ActivityHandler
	Health   *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, authMiddleware Middleware) *router.Router {
	r := router.New()
	r.RedirectTrailingSlash = false

	r.GET("/health", handlers.Health.Check)

	auth := r.Group("/api/v1/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)
	auth.POST("/refresh", handlers.Auth.Refresh)
	auth.POST("/logout", handlers.Auth.Logout)
	auth.POST("/forgot-password", handlers.Auth.ForgotPassword)
	auth.POST("/reset-password", handlers.Auth.ResetPassword)

	// Protected routes
	api := r.Group("/api/v1")
	api.GET("/profile", authMiddleware(handlers.Profile.GetProfile))
	api.PUT("/profile", authMiddleware(handlers.Profile.UpdateProfile))
	api.PUT("/profile/password", authMiddleware(handlers.Profile.ChangePassword))

	api.GET("/tasks", authMiddleware(handlers.Task.ListTasks))
	api.POST("/tasks", authMiddleware(handlers.Task.CreateTask))
	api.GET("/tasks/stats", authMiddleware(handlers.Task.Statistics))
	api.GET("/tasks/categories", authMiddleware(handlers.Task.Categories))
	api.POST("/tasks/batch", authMiddleware(handlers.Task.Batch))
	api.GET("/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	api.PATCH("/tasks/{id}", authMiddleware(handlers.Task.UpdateTask))
	api.DELETE("/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))
	api.POST("/tasks/{id}/toggle", authMiddleware(handlers.Task.ToggleTask))
	api.POST("/tasks/{id}/restore", authMiddleware(handlers.Task.RestoreTask))
	api.DELETE("/tasks/{id}/permanent", authMiddleware(handlers.Task.PurgeTask))

	api.GET("/recycle-bin", authMiddleware(handlers.Task.RecycleBin))
	api.DELETE("/recycle-bin", authMiddleware(handlers.Task.EmptyRecycleBin))

	api.GET("/activity", authMiddleware(handlers.Activity.Recent))

	return r
}
