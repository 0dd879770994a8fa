package admin

import (
	"context"
	"errors"
	"log/slog"

	"github.com/caasmo/regverify/engine"
	"github.com/caasmo/regverify/primitives"
)

// Dispatcher executes parsed Commands against an engine.Engine. Grounded on
// process_admin: any internal error is converted to ResponseInternalError
// for the caller while the detail is logged, matching §7's propagation
// policy for admin dispatch.
type Dispatcher struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewDispatcher(e *engine.Engine, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{engine: e, logger: logger.With("component", "admin")}
}

// Dispatch executes cmd and returns the Response to display.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) Response {
	switch cmd.Kind {
	case CommandStatus:
		return d.status(ctx, cmd)
	case CommandVerify:
		return d.verify(ctx, cmd)
	case CommandHelp:
		return Response{Kind: ResponseHelp}
	default:
		return Response{Kind: ResponseUnknownCommand}
	}
}

func (d *Dispatcher) status(ctx context.Context, cmd Command) Response {
	idctx := primitives.IdentityContext{Address: cmd.Address, Chain: cmd.Chain}
	state, err := d.engine.FetchState(ctx, idctx)
	if err != nil {
		var ierr *engine.Error
		if errors.As(err, &ierr) && ierr.Kind == engine.KindNotFound {
			return Response{Kind: ResponseIdentityNotFound}
		}
		d.logger.Error("status dispatch failed", "error", err)
		return Response{Kind: ResponseInternalError}
	}
	blanked := state.Blank()
	return Response{Kind: ResponseStatusOK, State: &blanked}
}

func (d *Dispatcher) verify(ctx context.Context, cmd Command) Response {
	idctx := primitives.IdentityContext{Address: cmd.Address, Chain: cmd.Chain}

	if len(cmd.Fields) == 1 && cmd.Fields[0] == RawFieldAll {
		applied, err := d.engine.FullManualVerification(ctx, idctx)
		if err != nil {
			d.logger.Error("verify all dispatch failed", "error", err)
			return Response{Kind: ResponseInternalError}
		}
		if !applied {
			return Response{Kind: ResponseIdentityNotFound}
		}
		return Response{Kind: ResponseVerified, Address: cmd.Address, Fields: cmd.Fields}
	}

	for _, field := range cmd.Fields {
		if field == RawFieldAll {
			// "all" mixed with concrete fields has no coherent meaning: it
			// would re-verify fields already covered by the sweep in an
			// undefined order relative to the loop below. Rejected before
			// any field is applied.
			return Response{Kind: ResponseInvalidSyntax, Input: string(RawFieldAll)}
		}
	}

	for _, field := range cmd.Fields {
		engineField, ok := field.toEngine()
		if !ok {
			return Response{Kind: ResponseInternalError}
		}
		applied, err := d.engine.VerifyManually(ctx, idctx, engineField, true)
		if err != nil {
			d.logger.Error("verify dispatch failed", "field", field, "error", err)
			return Response{Kind: ResponseInternalError}
		}
		if !applied {
			return Response{Kind: ResponseIdentityNotFound}
		}
	}
	return Response{Kind: ResponseVerified, Address: cmd.Address, Fields: cmd.Fields}
}
