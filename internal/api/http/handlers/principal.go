package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal, nil
}
