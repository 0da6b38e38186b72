package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/services"
)

type ApplicationHandler struct {
	Applications *services.ApplicationService
	Directory    *services.DirectoryService
}

func NewApplicationHandler(applications *services.ApplicationService, directory *services.DirectoryService) *ApplicationHandler {
	return &ApplicationHandler{Applications: applications, Directory: directory}
}

// Apply is POST /applications
func (h *ApplicationHandler) Apply(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req dtos.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	app, err := h.Applications.Apply(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// Get is GET /applications/:id
func (h *ApplicationHandler) Get(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// History is GET /applications/:id/history
func (h *ApplicationHandler) History(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.Applications.History(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// UpdateStatus is PATCH /applications/:id/status
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	app, err := h.Applications.UpdateStatus(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Withdraw is POST /applications/:id/withdraw
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.Withdraw(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ListByJobPost is GET /job-posts/:id/applications
func (h *ApplicationHandler) ListByJobPost(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.Applications.GetByJobPost(c.Request.Context(), id, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMine is GET /applications, listing the acting seeker's applications.
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	profile, err := h.Directory.ProfileByUser(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.Applications.GetByProfile(c.Request.Context(), profile.ID, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
