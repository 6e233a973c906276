package handler

import (
	"github.com/gin-gonic/gin"

	"taskhub/internal/model"
)

// PrincipalKey is the gin context key under which the session
// middleware stores the resolved principal.
const PrincipalKey = "principal"

// CurrentPrincipal reads the principal the session middleware resolved
// for this request.
func CurrentPrincipal(c *gin.Context) (model.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return model.Principal{}, false
	}
	p, ok := v.(model.Principal)
	return p, ok
}
