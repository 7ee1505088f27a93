package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Subject kinds carried in access tokens.
const (
	SubjectClient = "client"
	SubjectFixer  = "fixer"
)

// Roles carried in access tokens.
const (
	RoleClient = "client"
	RoleFixer  = "fixer"
	RoleAdmin  = "admin"
)

// Identity represents the authenticated caller.
type Identity interface {
	// SubjectID is the client or fixer primary key.
	SubjectID() int64
	// SubjectKind is SubjectClient or SubjectFixer.
	SubjectKind() string
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	subjectID     int64
	subjectKind   string
	roles         []string
	authenticated bool
}

func (i *identity) SubjectID() int64    { return i.subjectID }
func (i *identity) SubjectKind() string { return i.subjectKind }
func (i *identity) Roles() []string     { return i.roles }
func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if subject info is not present.
func GetIdentity(c *gin.Context) Identity {
	rawID, ok := c.Get(ContextSubjectIDKey)
	if !ok {
		return &identity{}
	}
	subjectID, ok := rawID.(int64)
	if !ok {
		return &identity{}
	}

	kind := c.GetString(ContextSubjectKindKey)
	var roles []string
	if value, ok := c.Get(ContextRolesKey); ok {
		roles, _ = value.([]string)
	}

	return &identity{
		subjectID:     subjectID,
		subjectKind:   kind,
		roles:         roles,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the caller is not authenticated, it aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
