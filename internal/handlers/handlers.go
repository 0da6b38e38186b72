package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/campusgigs/campusgigs-backend/internal/apperr"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
)

// HealthCheck is the unauthenticated liveness probe.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps a service failure to a status and a caller-safe body.
// Internal causes go to the log, never to the response.
func respondError(c *gin.Context, err error) {
	status := statusOf(apperr.CodeOf(err))
	if status == http.StatusInternalServerError {
		jww.ERROR.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err)})
}

func identity(c *gin.Context) (auth.Identity, bool) {
	actor, ok := auth.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	}
	return actor, ok
}

func idParam(c *gin.Context, name string) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(raw), true
}

func pageQuery(c *gin.Context) dtos.PageRequest {
	var page dtos.PageRequest
	_ = c.ShouldBindQuery(&page)
	return page
}
