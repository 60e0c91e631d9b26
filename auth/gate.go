package auth

// RequireRole composes after Verify. A verifier failure is returned as is,
// verified claims lacking role fail with ErrInsufficientRole, anything else
// hands the claims back untouched.
func RequireRole(claims *Claims, err error, role Role) (*Claims, error) {
	if err != nil {
		return nil, err
	}

	if claims == nil {
		return nil, ErrInvalidToken
	}

	if !claims.HasRole(role) {
		return nil, ErrInsufficientRole.Clone().WithMetadata(map[string]any{
			"subject":  claims.Subject,
			"required": string(role),
		})
	}

	return claims, nil
}

// Gate binds a verifier so handlers can authorize straight from the header
type Gate struct {
	verifier TokenVerifier
}

// NewGate returns a Gate over verifier
func NewGate(verifier TokenVerifier) *Gate {
	if verifier == nil {
		panic("AUTH: gate requires a token verifier")
	}
	return &Gate{verifier: verifier}
}

// ClaimsCheck inspects verified claims before the role requirement
type ClaimsCheck func(claims *Claims) error

// Authorize verifies the header, runs checks in order on the verified claims
// and, when role is set, checks membership. The first failure wins.
func (g *Gate) Authorize(rawHeader string, role Role, checks ...ClaimsCheck) (*Claims, error) {
	claims, err := g.verifier.Verify(rawHeader)
	if err == nil {
		for _, check := range checks {
			if check == nil {
				continue
			}
			if err = check(claims); err != nil {
				break
			}
		}
	}
	if role == "" {
		return claims, err
	}
	return RequireRole(claims, err, role)
}
