package httpapi

import (
	"net/http"

	"github.com/MrEthical07/ffauth"
	"github.com/MrEthical07/ffauth/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type authResponse struct {
	User         ffauth.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

type handler struct {
	engine *ffauth.Engine
	logger *zap.Logger
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.engine.Register(c.Request.Context(), ffauth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		abort(c, err)
		return
	}
	h.respond(c, http.StatusCreated, res)
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

func (h *handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	res, err := h.engine.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		abort(c, err)
		return
	}
	h.respond(c, http.StatusOK, res)
}

// logout always answers ok, even for a body it cannot parse.
func (h *handler) logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	h.engine.Logout(c.Request.Context(), req.RefreshToken)
	clearAccessCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *handler) me(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		abort(c, ffauth.ErrAuthRequired)
		return
	}

	u, err := h.engine.User(c.Request.Context(), p.UserID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *handler) respond(c *gin.Context, status int, res *ffauth.AuthResult) {
	setAccessCookie(c, res.AccessToken, h.engine.AccessTTL())
	c.JSON(status, authResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (h *handler) badRequest(c *gin.Context, err error) {
	h.logger.Debug("request binding failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusBadRequest, middleware.NewErrorBody(ffauth.ErrInvalidInput))
}
