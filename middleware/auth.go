package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"collab-docs/models"
	"collab-docs/utils"
)

const principalKey = "principal"

// Auth extracts the caller's principal from a bearer token minted by the
// external identity provider. Websocket clients may pass the token as a
// `token` query parameter instead, since browsers cannot set headers on
// upgrade requests.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, utils.Unauthorized("missing credentials"))
			return
		}
		principal, err := utils.PrincipalFromToken(token)
		if err != nil {
			abortWithError(c, utils.Unauthorized("invalid or expired token"))
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return c.Query("token")
}

// CurrentPrincipal returns the principal placed on the context by Auth.
func CurrentPrincipal(c *gin.Context) models.Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(models.Principal)
	return principal
}
