package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderOrganization = "X-Organization-ID"
	HeaderUser         = "X-User"

	organizationKey = "organization_id"
	actorKey        = "actor"
)

// Organization requires the caller's organization id, set by the upstream
// auth layer, and stores it on the request context.
func Organization() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := uuid.Parse(strings.TrimSpace(c.GetHeader(HeaderOrganization)))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing or invalid " + HeaderOrganization + " header"})
			return
		}
		c.Set(organizationKey, orgID)

		actor := strings.TrimSpace(c.GetHeader(HeaderUser))
		if actor == "" {
			actor = "api"
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// OrganizationID returns the id stored by Organization.
func OrganizationID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(organizationKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func Actor(c *gin.Context) string {
	return c.GetString(actorKey)
}
