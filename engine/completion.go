package engine

import (
	"context"
	"time"

	"github.com/caasmo/regverify/primitives"
)

// processFullyVerified implements spec.md §4.3.6: re-derive the completion
// flag from the current field set and CAS-transition it, guarded on the
// prior value so exactly one writer observes a false→true transition.
// Invoked after every mutation that could change verification status.
func (e *Engine) processFullyVerified(ctx context.Context, idctx primitives.IdentityContext) error {
	becameVerified := false

	applied, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		if s.CheckFullVerification() {
			if s.IsFullyVerified {
				return false, nil
			}
			now := time.Now().Unix()
			issueAt := now + primitives.IssueDelaySeconds()
			s.IsFullyVerified = true
			s.CompletionTimestamp = &now
			s.IssueJudgementAt = &issueAt
			becameVerified = true
			return true, nil
		}

		if !s.IsFullyVerified {
			return false, nil
		}
		s.IsFullyVerified = false
		s.JudgementSubmitted = false
		return true, nil
	})
	if err != nil {
		return newError(KindStorage, "process_fully_verified", err)
	}
	if applied && becameVerified {
		if err := e.store.InsertEvent(ctx, primitives.IdentityFullyVerified(idctx)); err != nil {
			return newError(KindStorage, "process_fully_verified: insert event", err)
		}
		e.logger.Info("identity fully verified", "address", idctx.Address, "chain", idctx.Chain)
	}
	return nil
}
