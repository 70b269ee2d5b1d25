package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the users service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches user routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PUT("/me", h.updateProfile)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	role := middleware.UserRoleFromContext(c)

	resp := gin.H{
		"userId": userID,
		"role":   role,
	}
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err == nil {
		resp["fullName"] = user.FullName
		resp["email"] = user.Email
		resp["country"] = user.Country
	} else if !errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch profile", nil)
		return
	}

	respond.OK(c, resp)
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	roleRaw := middleware.UserRoleFromContext(c)
	role, ok := ParseRole(roleRaw)
	if !ok {
		respond.Error(c, http.StatusForbidden, "wrong_role", "unknown actor role", nil)
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Country  string `json:"country"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	user := User{
		ID:        userID,
		Role:      role,
		FullName:  req.FullName,
		Email:     req.Email,
		Country:   req.Country,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.Svc.UpsertProfile(c.Request.Context(), user); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save profile", nil)
		return
	}

	respond.OK(c, gin.H{"userId": userID, "role": role})
}
