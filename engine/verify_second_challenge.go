package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/caasmo/regverify/primitives"
)

var errNoSecondChallenge = errors.New("engine: field has no second-stage challenge")

// VerifySecondChallengeRequest mirrors spec.md §4.3.2's
// `{ entry: IdentityFieldValue, challenge: string }` input shape.
type VerifySecondChallengeRequest struct {
	Entry     primitives.IdentityFieldValue
	Challenge string
}

// VerifySecondChallenge implements spec.md §4.3.2: for every state whose
// fields contain a matching entry, attempt the secondary nonce. Grounded on
// original_source/src/database.rs's verify_second_challenge. A field
// without a second-stage challenge is skipped rather than treated as a bug,
// since the entry comes from untrusted user input (the Rust original
// comments this explicitly).
func (e *Engine) VerifySecondChallenge(ctx context.Context, req VerifySecondChallengeRequest) (bool, error) {
	challenge := strings.TrimSpace(req.Challenge)

	states, err := e.store.FindByFieldValue(ctx, req.Entry)
	if err != nil {
		return false, newError(KindStorage, "verify_second_challenge: find", err)
	}

	verified := false
	for _, state := range states {
		accepted, err := e.applySecondChallenge(ctx, state.Context, req.Entry, challenge)
		if err != nil {
			return verified, err
		}
		if accepted {
			verified = true
		}
		if err := e.processFullyVerified(ctx, state.Context); err != nil {
			return verified, err
		}
	}
	return verified, nil
}

func (e *Engine) applySecondChallenge(ctx context.Context, idctx primitives.IdentityContext, entry primitives.IdentityFieldValue, challenge string) (bool, error) {
	var matched, accepted bool

	_, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		field := s.Field(entry)
		if field == nil || field.Challenge.Kind != primitives.ChallengeExpectedMessage {
			return false, nil
		}
		second := field.Challenge.ExpectedMessage.Second
		if second == nil {
			// No second stage on this field: skipped, since the entry is
			// untrusted user input.
			return false, nil
		}
		matched = true

		if strings.Contains(challenge, second.Value) {
			second.IsVerified = true
			accepted = true
			return true, nil
		}
		// A second-stage miss leaves failed_attempts untouched; only the
		// primary path increments it. See the open question in DESIGN.md.
		return false, nil
	})
	if err != nil {
		return false, newError(KindStorage, "verify_second_challenge: mutate", err)
	}
	if !matched {
		return false, nil
	}

	// Events are emitted after Mutate returns — see the comment in
	// verify_message.go's applyMessageToState for why calling InsertEvent
	// from inside the closure deadlocks store/mock and double-emits/
	// exhausts the pool against store/zombiezen.
	if accepted {
		if err := e.store.InsertEvent(ctx, primitives.SecondFieldVerified(idctx, entry)); err != nil {
			return false, newError(KindStorage, "verify_second_challenge: insert event", err)
		}
		return true, nil
	}
	if err := e.store.InsertEvent(ctx, primitives.SecondFieldVerificationFailed(idctx, entry)); err != nil {
		return false, newError(KindStorage, "verify_second_challenge: insert event", err)
	}
	return false, nil
}

// FetchSecondChallenge implements spec.md §4.3.3: returns the
// ExpectedMessage constituting field's secondary challenge, for the
// outbound-email adapter to embed in its probe message.
func (e *Engine) FetchSecondChallenge(ctx context.Context, idctx primitives.IdentityContext, field primitives.IdentityFieldValue) (primitives.ExpectedMessage, error) {
	state, err := e.store.FetchState(ctx, idctx)
	if err != nil {
		return primitives.ExpectedMessage{}, newError(KindNotFound, "fetch_second_challenge", err)
	}

	f := state.Field(field)
	if f == nil || f.Challenge.Kind != primitives.ChallengeExpectedMessage || f.Challenge.ExpectedMessage.Second == nil {
		return primitives.ExpectedMessage{}, newError(KindNotFound, "fetch_second_challenge", errNoSecondChallenge)
	}
	return *f.Challenge.ExpectedMessage.Second, nil
}
