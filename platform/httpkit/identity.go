package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// Identity is the authenticated caller as seen by handlers.
type Identity interface {
	UserID() string
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID string
	roles  []string
}

func (i *identity) UserID() string           { return i.userID }
func (i *identity) Roles() []string          { return i.roles }
func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i *identity) IsAuthenticated() bool    { return i.userID != "" }

// GetIdentity extracts the Identity set by AuthRequired.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	id := &identity{}
	if raw, ok := c.Get(ContextUserIDKey); ok {
		id.userID, _ = raw.(string)
	}
	if raw, ok := c.Get(ContextRolesKey); ok {
		id.roles, _ = raw.([]string)
	}
	return id
}

// MustGetIdentity aborts with 401 and returns nil when the caller is anonymous.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}
