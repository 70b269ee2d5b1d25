package applications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"placement-backend/internal/shared/server/middleware"
	"placement-backend/internal/shared/server/respond"
	"placement-backend/internal/shared/storage/object"
	"placement-backend/internal/shared/util"
	"placement-backend/internal/users"
)

const maxAttachmentBytes = 10 << 20

// Handler wires HTTP handlers to the workflow service.
type Handler struct {
	Svc   *Service
	Store object.ObjectStore
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, store object.ObjectStore) *Handler {
	return &Handler{Svc: svc, Store: store}
}

// RegisterRoutes attaches application routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs/:id/applications", h.apply)
	rg.GET("/applications", h.list)
	rg.GET("/applications/:id", h.get)
	rg.POST("/applications/:id/transition", h.transition)
	rg.POST("/applications/:id/attachments", h.uploadAttachment)
	rg.GET("/attachments/*key", h.downloadAttachment)
}

func (h *Handler) apply(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	app, err := h.Svc.Apply(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toResponse(app))
}

func (h *Handler) get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	app, err := h.Svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond.OK(c, toResponse(app))
}

func (h *Handler) list(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", 20)
	offset := queryInt(c, "offset", 0)
	apps, err := h.Svc.ListMine(c.Request.Context(), actor, c.Query("jobId"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	respond.OK(c, gin.H{"applications": toResponses(apps)})
}

func (h *Handler) transition(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	target, ok := ParseStage(req.TargetStage)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown target stage", gin.H{"targetStage": req.TargetStage})
		return
	}

	var attachment *Attachment
	if req.AttachmentURL != "" {
		attachment = &Attachment{URL: req.AttachmentURL}
	}

	app, err := h.Svc.Transition(c.Request.Context(), actor, c.Param("id"), target, attachment)
	if err != nil {
		respondError(c, err)
		return
	}
	respond.OK(c, toResponse(app))
}

func (h *Handler) uploadAttachment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if _, err := h.Svc.Get(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file field is required", nil)
		return
	}
	if fileHeader.Size > maxAttachmentBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds the size limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer file.Close()

	key, size, mimeType, err := h.Store.Save(c.Request.Context(), actor.UserID, fileHeader.Filename, file)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store attachment", nil)
		return
	}

	respond.JSON(c, http.StatusCreated, gin.H{
		"url":       "/api/v1/attachments/" + key,
		"sizeBytes": size,
		"mimeType":  mimeType,
	})
}

func (h *Handler) downloadAttachment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "attachment key is required", nil)
		return
	}
	if !h.canReadAttachment(c.Request.Context(), actor, key) {
		respond.Error(c, http.StatusForbidden, "not_owner", "attachment belongs to another user", nil)
		return
	}
	rc, err := h.Store.Open(c.Request.Context(), key)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "attachment not found", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

// canReadAttachment allows the uploader, whose storage keys live under
// their hashed owner segment, or a party to an application that references
// the file.
func (h *Handler) canReadAttachment(ctx context.Context, actor Actor, key string) bool {
	if owner, _, found := strings.Cut(key, "/"); found && owner == util.HashOwnerKey(actor.UserID) {
		return true
	}
	return h.Svc.AttachmentVisible(ctx, actor, "/api/v1/attachments/"+key)
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	userID := middleware.UserIDFromContext(c)
	role, ok := users.ParseRole(middleware.UserRoleFromContext(c))
	if userID == "" || !ok {
		respond.Error(c, http.StatusForbidden, "wrong_role", "unknown actor identity", nil)
		return Actor{}, false
	}
	return Actor{UserID: userID, Role: role}, true
}

// respondError maps workflow errors onto the HTTP error envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "application not found", nil)
	case errors.Is(err, ErrNotOwner):
		respond.Error(c, http.StatusForbidden, "not_owner", "you do not own this application or job", nil)
	case errors.Is(err, ErrWrongRole):
		respond.Error(c, http.StatusForbidden, "wrong_role", "your role cannot perform this action", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", "target stage is not reachable from the current stage", nil)
	case errors.Is(err, ErrStageRegression):
		respond.Error(c, http.StatusConflict, "stage_regression", "applications cannot move to an earlier stage", nil)
	case errors.Is(err, ErrJobAlreadyShortlisted):
		respond.Error(c, http.StatusConflict, "job_already_shortlisted", "this job already has a shortlisted candidate", nil)
	case errors.Is(err, ErrContractAlreadyExists):
		respond.Error(c, http.StatusConflict, "contract_already_exists", "a contract already exists for this application", nil)
	case errors.Is(err, ErrAttachmentRequired):
		respond.Error(c, http.StatusBadRequest, "attachment_required", "this stage requires a document attachment", nil)
	case errors.Is(err, ErrJobClosed):
		respond.Error(c, http.StatusConflict, "job_closed", "this job is no longer accepting applications", nil)
	case errors.Is(err, ErrAlreadyApplied):
		respond.Error(c, http.StatusConflict, "already_applied", "you already applied to this job", nil)
	case errors.Is(err, ErrLockContention):
		respond.Error(c, http.StatusServiceUnavailable, "lock_contention", "the application is busy, retry shortly", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected failure", nil)
	}
}
