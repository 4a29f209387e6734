package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http/middleware"
	appsvc "github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/service"
	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/repo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

var statusByKind = map[customErrors.Kind]int{
	customErrors.KindInputEmpty:        nethttp.StatusBadRequest,
	customErrors.KindInputInvalid:      nethttp.StatusBadRequest,
	customErrors.KindUserExists:        nethttp.StatusBadRequest,
	customErrors.KindUserDoesNotExist:  nethttp.StatusUnauthorized,
	customErrors.KindPasswordIncorrect: nethttp.StatusUnauthorized,
	customErrors.KindTokenEmpty:        nethttp.StatusBadRequest,
	customErrors.KindTokenInvalid:      nethttp.StatusBadRequest,
	customErrors.KindTooManyAttempts:   nethttp.StatusTooManyRequests,
	customErrors.KindRateLimited:       nethttp.StatusTooManyRequests,
	customErrors.KindUnknown:           nethttp.StatusInternalServerError,
}

type Handler struct {
	svc     appsvc.Service
	log     *zap.Logger
	metrics *middleware.Metrics
	checks  map[string]repo.Pinger
}

func NewHandler(svc appsvc.Service, log *zap.Logger, metrics *middleware.Metrics, checks map[string]repo.Pinger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log, metrics: metrics, checks: checks}
}

// Register mounts the auth routes. gate protects the routes that need an identity.
func (h *Handler) Register(r gin.IRouter, gate gin.HandlerFunc) {
	auth := r.Group("/auth")
	auth.POST("/signUp", h.SignUp)
	auth.POST("/signIn", h.SignIn)
	auth.POST("/check", h.Check)
	auth.GET("/me", gate, h.Me)

	r.GET("/health", h.Health)
}

func (h *Handler) SignUp(c *gin.Context) {
	var body dto.SignUpDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleError(c, "signUp", customErrors.NewInputInvalid(err.Error()))
		return
	}

	pair, err := h.svc.SignUp(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, "signUp", err)
		return
	}
	h.writePair(c, "signUp", pair)
}

func (h *Handler) SignIn(c *gin.Context) {
	var body dto.SignInDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleError(c, "signIn", customErrors.NewInputInvalid(err.Error()))
		return
	}

	pair, err := h.svc.SignIn(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, "signIn", err)
		return
	}
	h.writePair(c, "signIn", pair)
}

func (h *Handler) Check(c *gin.Context) {
	var body dto.CheckDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleError(c, "check", customErrors.NewInputInvalid(err.Error()))
		return
	}

	pair, err := h.svc.Check(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, "check", err)
		return
	}
	h.writePair(c, "check", pair)
}

func (h *Handler) Me(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		h.handleError(c, "me", customErrors.ErrTokenEmpty)
		return
	}
	c.JSON(nethttp.StatusOK, dto.IdentityDTO{Identifier: id.Identifier, Email: id.Email})
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status, code := "ok", nethttp.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status, code = "degraded", nethttp.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	c.JSON(code, gin.H{"status": status, "time": time.Now().Unix(), "dependencies": deps})
}

func (h *Handler) writePair(c *gin.Context, op string, pair model.TokenPair) {
	h.metrics.AuthOutcome(op, "OK")
	c.JSON(nethttp.StatusOK, dto.TokenPairDTO{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// handleError renders err from the fixed message table. Unknown failures are
// logged in full and answered with the generic message only.
func (h *Handler) handleError(c *gin.Context, op string, err error) {
	kind := customErrors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = nethttp.StatusInternalServerError
	}
	if kind == customErrors.KindUnknown {
		_ = c.Error(err)
	}

	h.metrics.AuthOutcome(op, kind.String())
	c.JSON(status, dto.ErrorDTO{Error: kind.Message(), Code: kind.String()})
}
