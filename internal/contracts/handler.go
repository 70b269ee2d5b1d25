package contracts

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the contracts repo.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches contract routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications/:id/contract", h.getByApplication)
}

// ContractResponse is the API shape of a contract.
type ContractResponse struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	JobID         string    `json:"jobId"`
	EmployerID    string    `json:"employerId"`
	EmployeeID    string    `json:"employeeId"`
	DocumentURL   string    `json:"documentUrl"`
	IssuedAt      time.Time `json:"issuedAt"`
}

func (h *Handler) getByApplication(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	applicationID := c.Param("id")

	contract, err := h.Repo.GetByApplication(c.Request.Context(), applicationID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "contract not found", nil)
		return
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load contract", nil)
		return
	}

	// Only the two parties to the contract may read it.
	if userID != contract.EmployerID && userID != contract.EmployeeID {
		respond.Error(c, http.StatusForbidden, "not_owner", "contract belongs to another application", nil)
		return
	}

	respond.OK(c, ContractResponse{
		ID:            contract.ID,
		ApplicationID: contract.ApplicationID,
		JobID:         contract.JobID,
		EmployerID:    contract.EmployerID,
		EmployeeID:    contract.EmployeeID,
		DocumentURL:   contract.DocumentURL,
		IssuedAt:      contract.IssuedAt,
	})
}
