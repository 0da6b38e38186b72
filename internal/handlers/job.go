package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/services"
)

type JobHandler struct {
	Jobs      *services.JobService
	Directory *services.DirectoryService
}

func NewJobHandler(jobs *services.JobService, directory *services.DirectoryService) *JobHandler {
	return &JobHandler{Jobs: jobs, Directory: directory}
}

// CreateCompany is POST /companies
func (h *JobHandler) CreateCompany(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req dtos.CompanyCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	company, err := h.Jobs.CreateCompany(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

// CreateJobPost is POST /job-posts
func (h *JobHandler) CreateJobPost(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req dtos.JobPostCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	post, err := h.Jobs.CreateJobPost(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetJobPost is GET /job-posts/:id
func (h *JobHandler) GetJobPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	post, err := h.Jobs.GetJobPost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListJobPosts is GET /job-posts
func (h *JobHandler) ListJobPosts(c *gin.Context) {
	result, err := h.Jobs.ListJobPosts(c.Request.Context(), pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpsertProfile is PUT /profile
func (h *JobHandler) UpsertProfile(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req dtos.ProfileUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	profile, err := h.Directory.UpsertProfile(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
