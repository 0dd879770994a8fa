package engine

import (
	"context"
	"errors"
	"time"

	"github.com/caasmo/regverify/primitives"
)

var errUnknownFieldName = errors.New("engine: unrecognized field name")

// RawFieldName is the admin-facing field-name token, grounded on
// original_source/src/adapters/admin.rs's RawFieldName. All is a meta-name:
// valid in the admin dispatch layer (admin/), but VerifyManually rejects it
// since it has no single field to scope an update to.
type RawFieldName string

const (
	RawFieldLegalName   RawFieldName = "legal_name"
	RawFieldDisplayName RawFieldName = "display_name"
	RawFieldEmail       RawFieldName = "email"
	RawFieldWeb         RawFieldName = "web"
	RawFieldTwitter     RawFieldName = "twitter"
	RawFieldMatrix      RawFieldName = "matrix"
	RawFieldAll         RawFieldName = "all"
)

func (f RawFieldName) fieldKind() (primitives.FieldKind, bool) {
	switch f {
	case RawFieldLegalName:
		return primitives.FieldLegalName, true
	case RawFieldDisplayName:
		return primitives.FieldDisplayName, true
	case RawFieldEmail:
		return primitives.FieldEmail, true
	case RawFieldWeb:
		return primitives.FieldWeb, true
	case RawFieldTwitter:
		return primitives.FieldTwitter, true
	case RawFieldMatrix:
		return primitives.FieldMatrix, true
	default:
		return "", false
	}
}

// VerifyManually implements spec.md §4.3.4: sets the verification flags the
// given field kind's challenge variant carries, scoped to the matching
// field in the state. Grounded on original_source/src/database.rs's
// verify_manually.
func (e *Engine) VerifyManually(ctx context.Context, idctx primitives.IdentityContext, field RawFieldName, fullCheck bool) (bool, error) {
	if field == RawFieldAll {
		return false, newError(KindInvalidArgument, "verify_manually", ErrAllIsMetaName)
	}
	kind, ok := field.fieldKind()
	if !ok {
		return false, newError(KindInvalidArgument, "verify_manually", errUnknownFieldName)
	}

	applied, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		f := s.FieldByKind(kind)
		if f == nil {
			return false, nil
		}
		return true, applyManualOverride(f)
	})
	if err != nil {
		return false, newError(KindStorage, "verify_manually: mutate", err)
	}
	if !applied {
		return false, nil
	}

	if fullCheck {
		if err := e.store.InsertEvent(ctx, primitives.ManuallyVerified(idctx, string(field))); err != nil {
			return true, newError(KindStorage, "verify_manually: insert event", err)
		}
		if err := e.processFullyVerified(ctx, idctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// applyManualOverride sets the verification flags fixed by the field's
// challenge variant, matching spec.md §4.3.4's per-kind mutation table.
func applyManualOverride(f *primitives.IdentityField) error {
	switch f.Challenge.Kind {
	case primitives.ChallengeExpectedMessage:
		m := f.Challenge.ExpectedMessage
		m.Expected.IsVerified = true
		if m.Second != nil {
			m.Second.IsVerified = true
		}
	case primitives.ChallengeDisplayNameCheck:
		f.Challenge.DisplayNameCheck.Passed = true
	case primitives.ChallengeUnsupported:
		verified := true
		f.Challenge.Unsupported.IsVerified = &verified
	}
	return nil
}

// allRawFieldNames is every concrete (non-meta) field name, the set
// full_manual_verification sweeps silently ignoring absent fields.
var allRawFieldNames = []RawFieldName{
	RawFieldLegalName, RawFieldDisplayName, RawFieldEmail,
	RawFieldWeb, RawFieldTwitter, RawFieldMatrix,
}

// FullManualVerification implements spec.md §4.3.5: CAS-transitions the
// state straight to fully verified (bypassing per-field challenge checks),
// then sweeps every concrete field kind through VerifyManually so the
// persisted challenge state is consistent with the override. Grounded on
// original_source/src/database.rs's full_manual_verification.
func (e *Engine) FullManualVerification(ctx context.Context, idctx primitives.IdentityContext) (bool, error) {
	applied, err := e.store.Mutate(ctx, idctx, func(s *primitives.JudgementState) (bool, error) {
		now := time.Now().Unix()
		issueAt := now + primitives.IssueDelaySeconds()
		s.IsFullyVerified = true
		s.JudgementSubmitted = false
		s.CompletionTimestamp = &now
		s.IssueJudgementAt = &issueAt
		return true, nil
	})
	if err != nil {
		return false, newError(KindStorage, "full_manual_verification: mutate", err)
	}
	if !applied {
		return false, nil
	}

	for _, field := range allRawFieldNames {
		if _, err := e.VerifyManually(ctx, idctx, field, false); err != nil {
			return true, err
		}
	}

	if err := e.store.InsertEvent(ctx, primitives.FullManualVerification(idctx)); err != nil {
		return true, newError(KindStorage, "full_manual_verification: insert event", err)
	}
	return true, nil
}
