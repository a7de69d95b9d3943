package handler

import (
	"fuelops/pkg/apperror"
	"fuelops/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps the error taxonomy to HTTP and renders the standard
// error envelope.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// callerID returns the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	id, _ := userID.(string)
	return id
}
