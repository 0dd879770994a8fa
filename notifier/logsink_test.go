package notifier

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/caasmo/regverify/primitives"
)

func TestLogSinkPublishLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewLogSink(logger)

	idctx := primitives.IdentityContext{Address: "addr1", Chain: primitives.Polkadot}
	bundle := Bundle{
		Event: primitives.NewEvent(primitives.IdentityFullyVerified(idctx)),
	}

	if err := sink.Publish(bundle); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(buf.String(), "identity event") {
		t.Fatalf("expected log output to contain the event, got: %s", buf.String())
	}
}
