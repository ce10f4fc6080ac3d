package middlewares

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/backoffice_backend/utils"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the acting business from the x-business-id
// header and places it (plus optional user identity headers) in the request
// context. Every /api route except business creation requires it; the tenant
// guard plugin scopes all queries to it.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.Request.Header.Get("x-business-id")
		if businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "x-business-id header is required",
			})
			c.Abort()
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if v := c.Request.Header.Get("x-user-id"); v != "" {
			if userId, err := strconv.Atoi(v); err == nil {
				ctx = utils.SetUserIdInContext(ctx, userId)
			}
		}
		if v := c.Request.Header.Get("x-user-name"); v != "" {
			ctx = utils.SetUserNameInContext(ctx, v)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
