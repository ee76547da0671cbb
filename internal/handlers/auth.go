package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=64"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Name      string `json:"name" validate:"max=255"`
	Role      string `json:"role" validate:"required"`
	ManagerID string `json:"managerID" validate:"max=64"`
}

type tokenResponse struct {
	Tokens map[string]string `json:"tokens"`
	User   *models.UserAuth  `json:"user"`
}

func (r *Router) issueTokens(w http.ResponseWriter, req *http.Request, user *models.UserAuth, status int) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, r.JWTSecret)
	if err != nil {
		r.respondError(w, req, apperr.Internal(err, "failed to generate tokens"))
		return
	}
	respondJSON(w, status, tokenResponse{
		Tokens: map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		User: user,
	})
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	body, err := utils.BindJSON[LoginRequest](req.Body)
	if err != nil {
		r.respondError(w, req, err)
		return
	}

	user, err := r.Store.UserByUsername(req.Context(), body.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		r.respondError(w, req, apperr.Internal(err, "failed to load account"))
		return
	}
	if user == nil || !user.IsActive || !utils.CheckPasswordHash(body.Password, user.Password) {
		r.respondError(w, req, apperr.Unauthenticated("invalid credentials"))
		return
	}

	now := time.Now().UTC()
	if err := r.Store.TouchLogin(req.Context(), user.ID, now); err != nil {
		r.Log.Warn("failed to record login", zap.String("user", user.Username), zap.Error(err))
	}
	user.LastLogin = &now

	r.issueTokens(w, req, user, http.StatusOK)
}

// refresh issues a new token pair for a valid refresh token
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	body, err := utils.BindJSON[RefreshRequest](req.Body)
	if err != nil {
		r.respondError(w, req, err)
		return
	}

	claims, err := utils.ValidateToken(body.RefreshToken, r.JWTSecret)
	if err != nil {
		r.respondError(w, req, apperr.Unauthenticated("invalid or expired refresh token"))
		return
	}
	userID, isRefresh, err := utils.TokenSubject(claims)
	if err != nil || !isRefresh {
		r.respondError(w, req, apperr.Unauthenticated("invalid or expired refresh token"))
		return
	}

	if _, err := r.Resolver.ByUserID(req.Context(), userID); err != nil {
		r.respondError(w, req, err)
		return
	}
	user, err := r.Store.UserByID(req.Context(), userID)
	if err != nil {
		r.respondError(w, req, apperr.Unauthenticated("account not found"))
		return
	}
	r.issueTokens(w, req, user, http.StatusOK)
}

// register creates an account. Office only.
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	c := caller(req)
	if !c.Role.CanManageUsers() {
		r.respondError(w, req, apperr.Permission("role %s may not register users", c.Role))
		return
	}

	body, err := utils.BindJSON[RegisterRequest](req.Body)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	role, err := identity.ParseRole(body.Role)
	if err != nil {
		r.respondError(w, req, apperr.Validation("%v", err))
		return
	}
	managerID := strings.TrimSpace(body.ManagerID)
	if role == identity.RoleAgent && managerID == "" {
		r.respondError(w, req, apperr.Validation("managerID is required for role %s", role))
		return
	}

	hashedPassword, err := utils.HashPassword(body.Password)
	if err != nil {
		r.respondError(w, req, apperr.Internal(err, "failed to hash password"))
		return
	}

	user := &models.UserAuth{
		Username: body.Username,
		Password: hashedPassword,
		Name:     body.Name,
		Role:     role.String(),
		IsActive: true,
	}
	if managerID != "" {
		user.ManagerID = &managerID
	}

	if err := r.Store.CreateUser(req.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			r.respondError(w, req, apperr.Conflict("username or managerID already exists"))
			return
		}
		r.respondError(w, req, apperr.Internal(err, "failed to create user"))
		return
	}

	r.Log.Info("user registered", zap.String("user", user.Username), zap.String("role", user.Role), zap.String("by", c.Username))
	respondJSON(w, http.StatusCreated, user)
}

// me returns the resolved caller
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, caller(req))
}
