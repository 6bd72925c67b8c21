package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trainova/classtrack-api/internal/middleware"
	"github.com/trainova/classtrack-api/internal/models"
)

func identityFromContext(c *gin.Context) models.Identity {
	value, exists := c.Get(middleware.ContextIdentityKey)
	if !exists {
		return models.Identity{}
	}
	ident, ok := value.(models.Identity)
	if !ok {
		return models.Identity{}
	}
	return ident
}
