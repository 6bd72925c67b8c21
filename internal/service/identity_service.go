package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/trainova/classtrack-api/internal/models"
	appErrors "github.com/trainova/classtrack-api/pkg/errors"
)

// IdentityConfig carries request-identity verification settings.
type IdentityConfig struct {
	JWTSecret  string
	Issuer     string
	APIKeyHash string
}

// IdentityService verifies bearer tokens and API keys presented by callers.
// Tokens are issued by the upstream identity service, never by this API.
type IdentityService struct {
	cfg IdentityConfig
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(cfg IdentityConfig) *IdentityService {
	return &IdentityService{cfg: cfg}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *IdentityService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected token issuer")
	}

	return claims, nil
}

// ValidateAPIKey checks the shared machine-client key against the configured
// bcrypt hash and returns a service identity.
func (s *IdentityService) ValidateAPIKey(key string) (models.Identity, error) {
	if s.cfg.APIKeyHash == "" || key == "" {
		return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, "api key not accepted")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.APIKeyHash), []byte(key)); err != nil {
		return models.Identity{}, appErrors.Clone(appErrors.ErrUnauthorized, "api key not accepted")
	}
	return models.Identity{UserID: "api-key", FullName: "Integration Client", Role: models.RoleService}, nil
}
