package admin

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/caasmo/regverify/engine"
	"github.com/caasmo/regverify/primitives"
	"github.com/caasmo/regverify/store/mock"
)

func testDispatcher() (*Dispatcher, *mock.Store) {
	s := mock.New()
	e := engine.New(s, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewDispatcher(e, slog.New(slog.NewTextHandler(io.Discard, nil))), s
}

func TestDispatchStatusNotFound(t *testing.T) {
	d, _ := testDispatcher()
	cmd, _ := ParseCommand(primitives.Polkadot, "status ghost")
	resp := d.Dispatch(context.Background(), cmd)
	if resp.Kind != ResponseIdentityNotFound {
		t.Errorf("got %+v, want ResponseIdentityNotFound", resp)
	}
}

func TestDispatchStatusFound(t *testing.T) {
	d, s := testDispatcher()
	ctx := context.Background()
	idctx := primitives.NewIdentityContext("alice-addr", primitives.Polkadot)
	state := primitives.NewJudgementState(idctx, []primitives.IdentityFieldValue{primitives.NewDisplayName("Alice")})
	if err := s.InsertState(ctx, state); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	cmd, _ := ParseCommand(primitives.Polkadot, "status alice-addr")
	resp := d.Dispatch(ctx, cmd)
	if resp.Kind != ResponseStatusOK {
		t.Fatalf("got %+v, want ResponseStatusOK", resp)
	}
	if resp.State.Context != idctx {
		t.Errorf("got context %v, want %v", resp.State.Context, idctx)
	}
}

func TestDispatchVerifySingleField(t *testing.T) {
	d, s := testDispatcher()
	ctx := context.Background()
	idctx := primitives.NewIdentityContext("alice-addr", primitives.Polkadot)
	state := primitives.NewJudgementState(idctx, []primitives.IdentityFieldValue{primitives.NewTwitter("@alice")})
	if err := s.InsertState(ctx, state); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	cmd, _ := ParseCommand(primitives.Polkadot, "verify alice-addr twitter")
	resp := d.Dispatch(ctx, cmd)
	if resp.Kind != ResponseVerified {
		t.Fatalf("got %+v, want ResponseVerified", resp)
	}

	got, err := s.FetchState(ctx, idctx)
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if !got.IsFullyVerified {
		t.Error("expected identity to be fully verified after verifying its only field")
	}
}

func TestDispatchVerifyAllExpandsToFullManualVerification(t *testing.T) {
	d, s := testDispatcher()
	ctx := context.Background()
	idctx := primitives.NewIdentityContext("alice-addr", primitives.Polkadot)
	state := primitives.NewJudgementState(idctx, []primitives.IdentityFieldValue{
		primitives.NewDisplayName("Alice"), primitives.NewEmail("alice@example.com"),
	})
	if err := s.InsertState(ctx, state); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	cmd, _ := ParseCommand(primitives.Polkadot, "verify alice-addr all")
	resp := d.Dispatch(ctx, cmd)
	if resp.Kind != ResponseVerified {
		t.Fatalf("got %+v, want ResponseVerified", resp)
	}

	got, err := s.FetchState(ctx, idctx)
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if !got.IsFullyVerified {
		t.Error("expected identity to be fully verified after verify all")
	}
}

func TestDispatchVerifyMixedAllIsInvalidSyntax(t *testing.T) {
	d, s := testDispatcher()
	ctx := context.Background()
	idctx := primitives.NewIdentityContext("alice-addr", primitives.Polkadot)
	state := primitives.NewJudgementState(idctx, []primitives.IdentityFieldValue{primitives.NewTwitter("@alice")})
	if err := s.InsertState(ctx, state); err != nil {
		t.Fatalf("InsertState: %v", err)
	}

	cmd := Command{Kind: CommandVerify, Address: idctx.Address, Chain: idctx.Chain,
		Fields: []RawFieldName{RawFieldTwitter, RawFieldAll}}
	resp := d.Dispatch(ctx, cmd)
	if resp.Kind != ResponseInvalidSyntax {
		t.Errorf("got %+v, want ResponseInvalidSyntax", resp)
	}
}

func TestDispatchHelp(t *testing.T) {
	d, _ := testDispatcher()
	resp := d.Dispatch(context.Background(), Command{Kind: CommandHelp})
	if resp.Kind != ResponseHelp {
		t.Errorf("got %+v, want ResponseHelp", resp)
	}
	if resp.String() == "" {
		t.Error("expected non-empty help text")
	}
}
