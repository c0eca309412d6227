package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/08star/my-auth-app/pkg/errors"
)

// respondError converts domain errors to HTTP responses. Anything it does not
// recognise is a 500 and the cause is attached to the request for logging.
func respondError(c *gin.Context, err error) {
	var verr *errors.ValidationError
	switch {
	case errors.As(err, &verr):
		badRequest(c, verr.Error())
	case errors.Is(err, errors.ErrDeviceIDRequired):
		badRequest(c, "device_id is required")
	case errors.Is(err, errors.ErrDeviceIDTooLong):
		badRequest(c, "device_id is too long")
	case errors.Is(err, errors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_credentials",
			"error_description": "invalid username or password",
		})
	case errors.Is(err, errors.ErrTokenExpired), errors.Is(err, errors.ErrTokenInvalid),
		errors.Is(err, errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "unauthorized",
			"error_description": "invalid or expired token",
		})
	case errors.Is(err, errors.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "account_disabled",
			"error_description": "account is disabled",
		})
	case errors.Is(err, errors.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{
			"error":             "user_exists",
			"error_description": "user with this username already exists",
		})
	case errors.Is(err, errors.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "device_not_found",
			"error_description": "device not found",
		})
	case errors.Is(err, errors.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "user_not_found",
			"error_description": "user not found",
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "internal server error",
		})
	}
}

func badRequest(c *gin.Context, desc string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":             "invalid_request",
		"error_description": desc,
	})
}
