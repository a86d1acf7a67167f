package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AyanS2004/Labdetect/internal/auth"
	"github.com/AyanS2004/Labdetect/internal/service"
	"github.com/AyanS2004/Labdetect/internal/storage"
)

const serviceName = "detection-lab-auth"

// ctxUserID is the gin context key the auth middleware stores the
// resolved user id under.
const ctxUserID = "UserID"

type Handler struct {
	serviceLayer service.Service
	tokens       *auth.Manager
	storage      storage.Storage
	log          *slog.Logger
	env          string
}

func NewHandler(srvc service.Service, tokens *auth.Manager, st storage.Storage, lgr *slog.Logger, env string) *Handler {
	return &Handler{
		serviceLayer: srvc,
		tokens:       tokens,
		storage:      st,
		log:          lgr,
		env:          env,
	}
}

// envelope is the uniform response shape: {success, data?, error?, message?}.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, envelope{Success: false, Error: errMessage})
}

// respondError maps a service error kind to its HTTP status. Anything
// that is not a *service.Error is an internal fault and gets a generic
// message, never the error text.
func (h *Handler) respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		h.log.Error("unclassified error", slog.Any("error", err))
		newErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindAuth:
		status = http.StatusUnauthorized
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindInternal:
		h.log.Error("internal error", slog.Any("error", svcErr.Err))
	}

	newErrorResponse(c, status, svcErr.Message)
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()

	router.Use(RequestID(), RequestLogger(h.log))
	router.Use(gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, _ interface{}) {
		newErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}))

	router.NoRoute(func(c *gin.Context) {
		newErrorResponse(c, http.StatusNotFound, "Endpoint not found")
	})

	router.GET("/health", h.Health)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.RefreshTokens)

		authGroup.Use(AuthMiddleware(h.tokens))
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/profile", h.GetProfile)
		authGroup.PUT("/profile", h.UpdateProfile)
		authGroup.POST("/change-password", h.ChangePassword)
		authGroup.GET("/users", h.ListUsers)
	}

	return router
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	result, err := h.serviceLayer.Register(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, envelope{
		Success: true,
		Data: gin.H{
			"user":         result.User,
			"token":        result.AccessToken,
			"refreshToken": result.RefreshToken,
		},
	})
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.serviceLayer.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data: gin.H{
			"user":         result.User,
			"token":        result.AccessToken,
			"refreshToken": result.RefreshToken,
		},
	})
}

// POST /auth/refresh
func (h *Handler) RefreshTokens(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, err := h.serviceLayer.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data: gin.H{
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		},
	})
}

// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.serviceLayer.Logout(c.Request.Context(), c.GetString(ctxUserID)); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, Message: "Logged out successfully"})
}

// GET /auth/profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.serviceLayer.GetProfile(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, Data: user})
}

// PUT /auth/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	// binding into ProfileUpdate is the field allow-list: anything else
	// in the body is dropped, not an error
	var upd service.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.serviceLayer.UpdateProfile(c.Request.Context(), c.GetString(ctxUserID), upd); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, Message: "Profile updated successfully"})
}

// POST /auth/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	if err := h.serviceLayer.ChangePassword(c.Request.Context(), c.GetString(ctxUserID), req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, Message: "Password changed successfully"})
}

// GET /auth/users?page=&limit=
func (h *Handler) ListUsers(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}

	result, err := h.serviceLayer.ListUsers(c.Request.Context(), c.GetString(ctxUserID), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, envelope{
		Success: true,
		Data: gin.H{
			"users":      result.Users,
			"pagination": result.Pagination,
		},
	})
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	dbStatus := "connected"
	if err := h.storage.Ping(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     serviceName,
		"environment": h.env,
		"database":    dbStatus,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
