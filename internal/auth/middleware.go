package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-dispatch/internal/domain"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. The engine trusts the
// claims in tokens minted by the surrounding application; user records stay
// collaborator-owned and are not re-loaded here.
type Principal struct {
	SubjectType domain.SubjectType
	SubjectID   string
	TenantID    string
	Role        *domain.UserRole
}

// IsAdmin reports whether the caller carries the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role != nil && *p.Role == domain.UserRoleAdmin
}

// AuthMiddleware validates bearer tokens or the ops API key.
type AuthMiddleware struct {
	tokens     *TokenManager
	opsKeyHash string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, opsKeyHash string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, opsKeyHash: opsKeyHash}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if key := c.Get("X-API-Key"); key != "" {
		if err := VerifyOpsKey(m.opsKeyHash, key); err != nil {
			return apperrors.NewUnauthorized("invalid api key")
		}
		adminRole := domain.UserRoleAdmin
		c.Locals(principalKey, &Principal{
			SubjectType: domain.SubjectTypeService,
			SubjectID:   "ops",
			Role:        &adminRole,
		})
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{
		SubjectType: claims.Subject,
		SubjectID:   claims.SubjectID,
		TenantID:    claims.TenantID,
		Role:        claims.Role,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
