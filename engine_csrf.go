package admingate

import (
	"context"

	"github.com/harborcms/admingate/csrf"
)

// IssueCSRF mints an anti-forgery token bound to the caller's user agent
// and address, both taken from ctx.
func (e *Engine) IssueCSRF(ctx context.Context) (csrf.Token, error) {
	if e == nil {
		return csrf.Token{}, ErrEngineNotReady
	}
	tok, err := e.guard.Issue(ctx, userAgentFromContext(ctx), clientIPFromContext(ctx))
	if err != nil {
		return csrf.Token{}, err
	}
	e.metricInc(MetricCSRFIssued)
	return tok, nil
}

// CheckCSRF validates a presented token value against the caller's user
// agent from ctx. Rejections are counted and audited; the check never
// consumes the token.
func (e *Engine) CheckCSRF(ctx context.Context, value string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.guard.Check(ctx, value, userAgentFromContext(ctx)); err != nil {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, EventCSRFRejected, false, "", "", err, nil)
		return err
	}
	return nil
}
