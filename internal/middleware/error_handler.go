package middleware

import (
	"github.com/gin-gonic/gin"

	"chat_server/pkg/errors"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			statusCode := errors.HTTPStatusFromError(err.Err)

			c.JSON(statusCode, errors.NewAPIError(err.Error(), statusCode))
		}
	}
}
