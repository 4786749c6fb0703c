package admingate

import (
	"context"
	"errors"

	"github.com/harborcms/admingate/token"
)

// ValidateBearer verifies a signed bearer token and re-checks that the
// referenced identity is still active. Expired and malformed tokens fail
// with distinct errors so API clients know whether to refresh or re-login.
func (e *Engine) ValidateBearer(ctx context.Context, signed string) (BearerClaims, error) {
	if e == nil || e.provider == nil {
		return BearerClaims{}, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(signed)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		if errors.Is(err, token.ErrExpired) {
			return BearerClaims{}, ErrTokenExpired
		}
		return BearerClaims{}, ErrTokenMalformed
	}

	rec, err := e.provider.GetByID(ctx, claims.IdentityID)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		if errors.Is(err, ErrIdentityNotFound) {
			// A verified token for an identity that no longer exists is
			// a dead credential, not a transient condition.
			return BearerClaims{}, ErrTokenMalformed
		}
		return BearerClaims{}, err
	}
	if !rec.Active {
		e.metricInc(MetricTokenRejected)
		return BearerClaims{}, ErrAccountDeactivated
	}

	out := BearerClaims{Identity: summaryFromRecord(rec)}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// RefreshToken issues a new bearer token with a fresh validity window. The
// presented token must currently verify and the identity must still be
// active; no secret re-entry is required.
func (e *Engine) RefreshToken(ctx context.Context, signed string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	claims, err := e.ValidateBearer(ctx, signed)
	if err != nil {
		return "", err
	}

	fresh, err := e.tokens.Issue(claims.Identity.ID, string(claims.Identity.Role))
	if err != nil {
		return "", err
	}

	e.metricInc(MetricTokenRefreshed)
	e.emitAudit(ctx, EventTokenRefresh, true, claims.Identity.ID, "", nil, nil)
	return fresh, nil
}
