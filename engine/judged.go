package engine

import (
	"context"

	"github.com/caasmo/regverify/primitives"
)

// SetJudged implements spec.md §4.2's set_judged: conditionally flips
// judgement_submitted and, on success, emits JudgementProvided. The
// conditional flip itself lives in store.Store.SetJudged (a bare CAS); the
// event-emission decision belongs here since the store layer never emits
// events on its own.
func (e *Engine) SetJudged(ctx context.Context, idctx primitives.IdentityContext) error {
	applied, err := e.store.SetJudged(ctx, idctx)
	if err != nil {
		return newError(KindStorage, "set_judged", err)
	}
	if !applied {
		return nil
	}
	if err := e.store.InsertEvent(ctx, primitives.JudgementProvided(idctx)); err != nil {
		return newError(KindStorage, "set_judged: insert event", err)
	}
	return nil
}

// FetchCandidates implements the read-only half of spec.md §4.4: return
// every judgement candidate on chain, driven on demand by the external
// chain submitter. No mutation; the submitter calls SetJudged per accepted
// candidate.
func (e *Engine) FetchCandidates(ctx context.Context, chain primitives.ChainName) ([]primitives.JudgementState, error) {
	states, err := e.store.FetchCandidates(ctx, chain)
	if err != nil {
		return nil, newError(KindStorage, "fetch_candidates", err)
	}
	return states, nil
}

// FetchState implements spec.md §4.2's fetch_state.
func (e *Engine) FetchState(ctx context.Context, idctx primitives.IdentityContext) (*primitives.JudgementState, error) {
	state, err := e.store.FetchState(ctx, idctx)
	if err != nil {
		return nil, newError(KindNotFound, "fetch_state", err)
	}
	return state, nil
}
