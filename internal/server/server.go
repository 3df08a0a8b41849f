package server

import (
	"context"
	"net/http"
	"time"

	"taskboard/internal/domain/errors"
	"taskboard/internal/logger"
	"taskboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TaskAPI struct {
	httpSrv *http.Server
	auth    *service.AuthService
	tasks   *service.TaskService
	tokens  *TokenManager
	limiter *RateLimiter
	cfg     *Config
}

// NewTaskAPI wires the HTTP surface. It returns nil when a required service is missing.
func NewTaskAPI(cfg *Config, auth *service.AuthService, tasks *service.TaskService, limiter *RateLimiter) *TaskAPI {
	if auth == nil || tasks == nil {
		return nil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if limiter == nil {
		limiter = &RateLimiter{}
	}

	api := &TaskAPI{
		httpSrv: &http.Server{
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		auth:    auth,
		tasks:   tasks,
		tokens:  NewTokenManager(cfg.JWTSecret, cfg.JWTTTL.Duration),
		limiter: limiter,
		cfg:     cfg,
	}
	api.configRoutes()
	return api
}

func (api *TaskAPI) Handler() http.Handler {
	return api.httpSrv.Handler
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	if api.httpSrv.Addr == "" {
		api.httpSrv.Addr = ":8080"
	}
	err := api.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) configRoutes() {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(RequestLogger(logger.Get()), gin.Recovery(), GzipRequestDecompress(), GzipResponseCompress())

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "taskboard API is running"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	otpLimit := api.limiter.Limit(api.cfg.OTPRateLimit, api.cfg.OTPRateWindow.Duration)
	auth := RequireAuth(api.tokens)

	users := router.Group("/users")
	{
		users.POST("/signup", otpLimit, api.signup)
		users.POST("/login", api.login)
		users.POST("/verify-otp", otpLimit, api.verifyOTP)
		users.POST("/resend-otp", otpLimit, api.resendOTP)
		users.POST("/forgot-password", otpLimit, api.forgotPassword)
		users.POST("/reset-password-forgot", otpLimit, api.resetPasswordForgot)

		users.GET("", auth, api.listUsers)
		users.GET("/me", auth, api.me)
		users.PATCH("/me", auth, api.updateProfile)
		users.POST("/reset-password", auth, api.changePassword)
		users.POST("/reset-password/otp", auth, api.requestStepUpOTP)
		users.POST("/reset-password/otp/verify", auth, api.changePasswordWithOTP)
		users.POST("/logout", auth, api.logout)
	}

	tasks := router.Group("/tasks", auth)
	{
		tasks.POST("", api.createTask)
		tasks.GET("/assigned-to-me", api.tasksAssignedToMe)
		tasks.GET("/assigned-by-me", api.tasksAssignedByMe)
		tasks.GET("/dashboard-stats", api.dashboardStats)
		tasks.GET("/:taskID", api.getTask)
		tasks.PATCH("/:taskID", api.updateTask)
		tasks.PATCH("/:taskID/status", api.toggleTaskStatus)
		tasks.DELETE("/:taskID", api.deleteTask)
	}

	subtasks := router.Group("/subtasks", auth)
	{
		subtasks.POST("/:taskID", api.createSubTask)
		subtasks.GET("/:taskID", api.listSubTasks)
		subtasks.PATCH("/edit/:subTaskID", api.updateSubTask)
		subtasks.PATCH("/status/:subTaskID", api.toggleSubTaskStatus)
		subtasks.DELETE("/:subTaskID", api.deleteSubTask)
	}

	api.httpSrv.Handler = router
}

var kindStatus = map[error]int{
	errors.ErrNotFound:         http.StatusNotFound,
	errors.ErrForbidden:        http.StatusForbidden,
	errors.ErrValidation:       http.StatusBadRequest,
	errors.ErrConflict:         http.StatusConflict,
	errors.ErrInvalidOTP:       http.StatusBadRequest,
	errors.ErrEmailNotVerified: http.StatusUnauthorized,
	errors.ErrAuthFailed:       http.StatusUnauthorized,
}

// errorResponse maps err onto a status code and a client-safe message. Errors outside the
// domain taxonomy become a generic 500.
func errorResponse(err error) (int, string) {
	if status, ok := kindStatus[errors.Kind(err)]; ok {
		return status, errors.Message(err)
	}
	return http.StatusInternalServerError, errors.ErrInternalServer.Error()
}

func writeError(ctx *gin.Context, err error) {
	status, msg := errorResponse(err)
	if status == http.StatusInternalServerError {
		_ = ctx.Error(err)
	}
	ctx.JSON(status, gin.H{"error": msg})
}

func abortWithError(ctx *gin.Context, err error) {
	status, msg := errorResponse(err)
	ctx.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bindJSON decodes the request body into req and answers 400 on malformed JSON.
func bindJSON(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}
