package models

import "github.com/golang-jwt/jwt/v5"

// Role names recognised on request identities.
const (
	RoleAdmin       = "ADMIN"
	RoleCoordinator = "COORDINATOR"
	RoleAgent       = "AGENT"
	RoleService     = "SERVICE"
)

// JWTClaims is the access-token payload issued by the upstream identity
// service. This API only verifies tokens, it never issues them.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Identity is the request-scoped caller passed into the service layer.
type Identity struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// DisplayName is the name recorded on audit-style fields such as class note
// authors.
func (i Identity) DisplayName() string {
	if i.FullName != "" {
		return i.FullName
	}
	if i.UserID != "" {
		return i.UserID
	}
	return "system"
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
