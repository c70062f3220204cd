package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewJSON_EmitsStructuredRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewJSON(&buf)

	log.Info(context.Background(), "hello", "key", "value")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "hello" || rec["key"] != "value" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestWith_IncludesBoundPairs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewJSON(&buf).With("component", "mailer")

	log.Warn(context.Background(), "delivery failed")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["component"] != "mailer" {
		t.Fatalf("bound pair missing: %v", rec)
	}
}
