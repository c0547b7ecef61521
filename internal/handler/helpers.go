package handler

import (
	"net/http"

	"campusconnect/internal/pkg/auth/jwt"
	"campusconnect/internal/pkg/errs"
)

// requireIdentity extracts the authenticated identity or reports ErrUnauthorized.
func requireIdentity(r *http.Request) (*jwt.Payload, *errs.CustomError) {
	identity := jwt.GetPayloadFromContext(r)
	if identity == nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}
	return identity, nil
}

// requireRole extracts the identity and checks that its role is one of the
// given ones. Authenticated accounts with the wrong role get ErrRoleForbidden.
func requireRole(r *http.Request, roles ...string) (*jwt.Payload, *errs.CustomError) {
	identity, customErr := requireIdentity(r)
	if customErr != nil {
		return nil, customErr
	}

	for _, role := range roles {
		if identity.Role == role {
			return identity, nil
		}
	}

	return nil, errs.NewError(errs.ErrRoleForbidden)
}
