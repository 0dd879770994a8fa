package engine

import (
	"context"

	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/store"
)

// UpsertJudgementRequest implements spec.md §4.2's upsert_judgement_request:
// insert verbatim if absent; otherwise merge field-by-field, retaining
// in-flight challenge progress for unchanged values and resetting only
// fields whose declared value actually changed. Grounded on
// original_source/src/database.rs's add_judgement_request.
func (e *Engine) UpsertJudgementRequest(ctx context.Context, new primitives.JudgementState) (store.UpsertResult, error) {
	if err := e.store.InsertState(ctx, new); err == nil {
		if err := e.store.InsertEvent(ctx, primitives.IdentityInserted(new.Context)); err != nil {
			return store.UpsertInserted, newError(KindStorage, "upsert_judgement_request: insert event", err)
		}
		return store.UpsertInserted, nil
	} else if err != store.ErrAlreadyExists {
		return 0, newError(KindStorage, "upsert_judgement_request: insert", err)
	}

	result := store.UpsertUnchanged
	applied, err := e.store.Mutate(ctx, new.Context, func(current *primitives.JudgementState) (bool, error) {
		merged := make([]primitives.IdentityField, len(new.Fields))
		changed := len(new.Fields) != len(current.Fields)
		for i, field := range new.Fields {
			if existing := current.Field(field.Value); existing != nil {
				merged[i] = *existing
				continue
			}
			merged[i] = field
			changed = true
		}
		if !changed {
			return false, nil
		}
		current.Fields = merged
		return true, nil
	})
	if err != nil {
		return 0, newError(KindStorage, "upsert_judgement_request: mutate", err)
	}
	if !applied {
		return store.UpsertUnchanged, nil
	}
	result = store.UpsertUpdated

	if err := e.store.InsertEvent(ctx, primitives.IdentityUpdated(new.Context)); err != nil {
		return result, newError(KindStorage, "upsert_judgement_request: insert event", err)
	}
	if err := e.processFullyVerified(ctx, new.Context); err != nil {
		return result, err
	}
	return result, nil
}
