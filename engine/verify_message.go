package engine

import (
	"context"
	"errors"

	"github.com/caasmo/regverify/primitives"
)

// errInvalidChallengeForMessage is the invariant-violation cause when an
// inbound message matches a field whose challenge is not ExpectedMessage —
// it can only mean a field's challenge variant was assigned inconsistently
// with its kind at construction time.
var errInvalidChallengeForMessage = errors.New("engine: matched field's challenge is not ExpectedMessage")

// messageFieldValue builds the IdentityFieldValue a channel origin would be
// declared as, so the store can be queried by exact field value.
func messageFieldValue(origin primitives.ExternalMessageType) (primitives.IdentityFieldValue, bool) {
	switch origin.Kind {
	case primitives.OriginEmail:
		return primitives.NewEmail(origin.Value), true
	case primitives.OriginTwitter:
		return primitives.NewTwitter(origin.Value), true
	case primitives.OriginMatrix:
		return primitives.NewMatrix(origin.Value), true
	default:
		return primitives.IdentityFieldValue{}, false
	}
}

// VerifyMessage implements spec.md §4.3.1: find every state containing a
// field whose declared value matches the message's origin, and apply the
// message to that field's primary ExpectedMessage challenge independently
// per state (multiple pending states may legally share one external
// handle). Grounded on original_source/src/database.rs's verify_message,
// adapted to Go's explicit-error-return idiom in place of the Rust
// original's panic-on-bug.
func (e *Engine) VerifyMessage(ctx context.Context, msg primitives.ExternalMessage) error {
	value, ok := messageFieldValue(msg.Origin)
	if !ok {
		return nil
	}

	states, err := e.store.FindByFieldValue(ctx, value)
	if err != nil {
		return newError(KindStorage, "verify_message: find", err)
	}

	for _, state := range states {
		if err := e.applyMessageToState(ctx, state.Context, msg); err != nil {
			return err
		}
		if err := e.processFullyVerified(ctx, state.Context); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyMessageToState(ctx context.Context, idctx primitives.IdentityContext, msg primitives.ExternalMessage) error {
	var opErr error
	var fieldValue primitives.IdentityFieldValue
	var verified, hasSecond, failed bool

	applied, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		var field *primitives.IdentityField
		for i := range s.Fields {
			if s.Fields[i].Value.MatchesOrigin(msg) {
				field = &s.Fields[i]
				break
			}
		}
		if field == nil {
			return false, nil
		}
		if field.Challenge.Kind != primitives.ChallengeExpectedMessage {
			opErr = newError(KindInvariantViolation, "verify_message", errInvalidChallengeForMessage)
			return false, opErr
		}
		if field.Challenge.IsVerified() {
			return false, nil
		}

		m := field.Challenge.ExpectedMessage
		if m.Expected.IsVerified {
			return false, nil
		}

		fieldValue = field.Value
		if m.Expected.VerifyMessage(msg) {
			verified = true
			hasSecond = m.Second != nil
		} else {
			field.FailedAttempts++
			failed = true
		}
		return true, nil
	})
	if opErr != nil {
		return opErr
	}
	if err != nil {
		return newError(KindStorage, "verify_message: mutate", err)
	}
	if !applied {
		return nil
	}

	// Events are emitted after Mutate returns: InsertEvent takes its own
	// store connection/lock, and store/mock's and store/zombiezen's Mutate
	// both hold theirs for the closure's duration, so calling InsertEvent
	// from inside the closure deadlocks (store/mock) or exhausts the
	// connection pool and duplicates events on CAS retry (store/zombiezen).
	if verified {
		if err := e.store.InsertEvent(ctx, primitives.FieldVerified(idctx, fieldValue)); err != nil {
			return newError(KindStorage, "verify_message: insert event", err)
		}
		if hasSecond {
			if err := e.store.InsertEvent(ctx, primitives.AwaitingSecondChallenge(idctx, fieldValue)); err != nil {
				return newError(KindStorage, "verify_message: insert event", err)
			}
		}
	} else if failed {
		if err := e.store.InsertEvent(ctx, primitives.FieldVerificationFailed(idctx, fieldValue)); err != nil {
			return newError(KindStorage, "verify_message: insert event", err)
		}
		if e.failures != nil {
			e.failures.ObserveFailure(msg.Origin.Value)
		}
	}
	return nil
}
