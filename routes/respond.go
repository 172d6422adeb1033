package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"local-services-server/middleware"
	"local-services-server/services"
)

const internalErrorMessage = "Internal server error"

// respondError maps domain errors to HTTP status codes. Unexpected errors
// are logged and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err), services.IsConflict(err):
		middleware.AbortWithError(c, http.StatusBadRequest, err.Error())
	case services.IsNotFound(err):
		middleware.AbortWithError(c, http.StatusNotFound, err.Error())
	case services.IsUnauthorized(err):
		middleware.AbortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrUploadsDisabled):
		middleware.AbortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		logger := middleware.GetLogger(c)
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("❌ Request failed")
		_ = c.Error(err)
		middleware.AbortWithError(c, http.StatusInternalServerError, internalErrorMessage)
	}
}

func badRequest(c *gin.Context, message string) {
	middleware.AbortWithError(c, http.StatusBadRequest, message)
}

func notFound(c *gin.Context, resource string) {
	middleware.AbortWithError(c, http.StatusNotFound, resource+" not found")
}

// queryInt reads an integer query parameter, returning def when absent or malformed.
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func paramUint(c *gin.Context, key string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(key), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
