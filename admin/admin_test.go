package admin

import (
	"reflect"
	"testing"

	"github.com/caasmo/regverify/primitives"
)

func TestParseCommandStatus(t *testing.T) {
	cmd, resp := ParseCommand(primitives.Polkadot, "status Alice")
	if resp != nil {
		t.Fatalf("unexpected error response: %v", resp)
	}
	want := Command{Kind: CommandStatus, Address: "Alice", Chain: primitives.Polkadot}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}

	cmd, resp = ParseCommand(primitives.Polkadot, "status  Alice")
	if resp != nil {
		t.Fatalf("unexpected error response: %v", resp)
	}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}

	if _, resp := ParseCommand(primitives.Polkadot, "status"); resp == nil {
		t.Error("expected an error response for bare 'status'")
	}
}

func TestParseCommandVerify(t *testing.T) {
	cmd, resp := ParseCommand(primitives.Polkadot, "verify Alice email")
	if resp != nil {
		t.Fatalf("unexpected error response: %v", resp)
	}
	want := Command{Kind: CommandVerify, Address: "Alice", Chain: primitives.Polkadot, Fields: []RawFieldName{RawFieldEmail}}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}

	cmd, resp = ParseCommand(primitives.Polkadot, "verify Alice email displayname")
	if resp != nil {
		t.Fatalf("unexpected error response: %v", resp)
	}
	want = Command{Kind: CommandVerify, Address: "Alice", Chain: primitives.Polkadot,
		Fields: []RawFieldName{RawFieldEmail, RawFieldDisplayName}}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}

	cmd, resp = ParseCommand(primitives.Polkadot, "verify Alice email display_name")
	if resp != nil {
		t.Fatalf("unexpected error response: %v", resp)
	}
	if !reflect.DeepEqual(cmd, want) {
		t.Errorf("got %+v, want %+v", cmd, want)
	}

	if _, resp := ParseCommand(primitives.Polkadot, "verify Alice"); resp == nil {
		t.Error("expected an error response for 'verify Alice' with no fields")
	}

	if _, resp := ParseCommand(primitives.Polkadot, "verify Alice bogus"); resp == nil || resp.Kind != ResponseInvalidSyntax {
		t.Errorf("got %+v, want ResponseInvalidSyntax for unrecognized field", resp)
	}
}

func TestParseCommandHelp(t *testing.T) {
	cmd, resp := ParseCommand(primitives.Polkadot, "help")
	if resp != nil {
		t.Fatalf("unexpected error response: %v", resp)
	}
	if cmd.Kind != CommandHelp {
		t.Errorf("got %+v, want CommandHelp", cmd)
	}

	if _, resp := ParseCommand(primitives.Polkadot, "help now"); resp == nil {
		t.Error("expected an error response for 'help now'")
	}
}

func TestParseCommandUnknown(t *testing.T) {
	if _, resp := ParseCommand(primitives.Polkadot, "frobnicate Alice"); resp == nil || resp.Kind != ResponseUnknownCommand {
		t.Errorf("got %+v, want ResponseUnknownCommand", resp)
	}
}
