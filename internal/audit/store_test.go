package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/secgate-io/secgate/internal/models"
)

func sampleDecision(id string, verdict models.Verdict) *models.Decision {
	return &models.Decision{
		ID:          id,
		EvaluatedAt: time.Now().UTC(),
		PolicyName:  "test-policy",
		Score:       80,
		Verdict:     verdict,
		Context:     &models.EvalContext{Name: "ctx-" + id},
	}
}

func TestFileStoreAppendsOneLinePerDecision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store := NewFileStore(path)

	for i, v := range []models.Verdict{models.VerdictAllow, models.VerdictDeny, models.VerdictConditional} {
		if err := store.Append(context.Background(), sampleDecision(string(rune('a'+i)), v)); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var verdicts []models.Verdict
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var d models.Decision
		if err := json.Unmarshal(scanner.Bytes(), &d); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		verdicts = append(verdicts, d.Verdict)
	}
	if len(verdicts) != 3 {
		t.Fatalf("audit log holds %d lines, want 3", len(verdicts))
	}
	if verdicts[1] != models.VerdictDeny {
		t.Errorf("second verdict = %s, want DENY", verdicts[1])
	}
}

func TestFileStoreCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.jsonl")
	store := NewFileStore(path)

	if err := store.Append(context.Background(), sampleDecision("x", models.VerdictAllow)); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("audit file was not created: %v", err)
	}
}

func TestFileStoreUnwritablePathErrors(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "no", "such", "dir", "audit.jsonl"))
	if err := store.Append(context.Background(), sampleDecision("x", models.VerdictAllow)); err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewFileStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err := store.Append(ctx, sampleDecision("x", models.VerdictAllow)); err == nil {
		t.Error("expected context cancellation error")
	}
}

func TestNopStoreNeverFails(t *testing.T) {
	if err := (NopStore{}).Append(context.Background(), nil); err != nil {
		t.Errorf("NopStore.Append = %v, want nil", err)
	}
}
