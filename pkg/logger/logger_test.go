package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithFieldsAttachesToContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf, Level: zerolog.InfoLevel})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"till_id":    "t-1",
		"session_id": "s-9",
	})
	logg.Info(ctx, "session opened")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not json: %v", err)
	}
	if entry["till_id"] != "t-1" || entry["session_id"] != "s-9" {
		t.Fatalf("missing fields in %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("missing service field in %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug should parse")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatal("empty defaults to info")
	}
	if ParseLevel("garbage") != zerolog.InfoLevel {
		t.Fatal("garbage defaults to info")
	}
}
