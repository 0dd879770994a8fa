package engine

import (
	"context"
	"errors"

	"github.com/caasmo/regverify/primitives"
)

var errNoDisplayNameField = errors.New("engine: state has no display_name field")

// SetDisplayNameValid implements spec.md §4.2's set_display_name_valid: the
// external similarity policy found no conflicting entry, so mark the
// display-name challenge passed and run the completion check. Grounded on
// original_source/src/database.rs's set_display_name_valid.
func (e *Engine) SetDisplayNameValid(ctx context.Context, idctx primitives.IdentityContext) error {
	var fieldValue primitives.IdentityFieldValue
	applied, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		f := s.FieldByKind(primitives.FieldDisplayName)
		if f == nil {
			return false, errNoDisplayNameField
		}
		if f.Challenge.DisplayNameCheck.Passed {
			return false, nil
		}
		f.Challenge.DisplayNameCheck.Passed = true
		fieldValue = f.Value
		return true, nil
	})
	if err != nil {
		return newError(KindStorage, "set_display_name_valid: mutate", err)
	}
	if !applied {
		return nil
	}

	if err := e.store.InsertEvent(ctx, primitives.FieldVerified(idctx, fieldValue)); err != nil {
		return newError(KindStorage, "set_display_name_valid: insert event", err)
	}
	return e.processFullyVerified(ctx, idctx)
}

// SetDisplayNameViolations implements set_display_name_violations: the
// external policy found conflicting entries, so the display-name challenge
// is marked failed and the conflicting entries recorded for the admin/UI to
// surface. No event is emitted and no completion check runs — failure
// cannot newly complete an identity.
func (e *Engine) SetDisplayNameViolations(ctx context.Context, idctx primitives.IdentityContext, violations []primitives.DisplayNameEntry) error {
	_, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		f := s.FieldByKind(primitives.FieldDisplayName)
		if f == nil {
			return false, errNoDisplayNameField
		}
		f.Challenge.DisplayNameCheck.Passed = false
		f.Challenge.DisplayNameCheck.Violations = violations
		return true, nil
	})
	if err != nil {
		return newError(KindStorage, "set_display_name_violations: mutate", err)
	}
	return nil
}
