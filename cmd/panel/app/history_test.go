package app

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/uav-lab/teststand2-buddy/internal/session"
	"github.com/uav-lab/teststand2-buddy/internal/storage"
)

func TestPrintHistory(t *testing.T) {
	ctx := context.Background()
	index := storage.NewRunIndex(filepath.Join(t.TempDir(), "index.sqlite"))
	defer index.Close()

	t.Run("empty index", func(t *testing.T) {
		var out bytes.Buffer
		if err := printHistory(ctx, &out, index); err != nil {
			t.Fatalf("printHistory failed: %v", err)
		}
		if !strings.Contains(out.String(), "No saved runs yet.") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})

	cfg := session.Config{Name: "bench-a", Resolution: 10, OutputScale: 0.8, StorageDir: t.TempDir()}
	savedAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if _, err := index.RecordSavedSession(ctx, cfg, 10, "/data/bench-a_260830-1200", savedAt); err != nil {
		t.Fatal(err)
	}
	cfg.Name = "bench-b"
	if _, err := index.RecordSavedSession(ctx, cfg, 20, "/data/bench-b_260830-1230", savedAt.Add(30*time.Minute)); err != nil {
		t.Fatal(err)
	}

	t.Run("lists runs oldest first", func(t *testing.T) {
		var out bytes.Buffer
		if err := printHistory(ctx, &out, index); err != nil {
			t.Fatalf("printHistory failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), out.String())
		}
		if !strings.Contains(lines[0], "bench-a") || !strings.Contains(lines[0], "/data/bench-a_260830-1200") {
			t.Errorf("unexpected first line: %q", lines[0])
		}
		if !strings.Contains(lines[1], "bench-b") || !strings.Contains(lines[1], "records=20") {
			t.Errorf("unexpected second line: %q", lines[1])
		}
	})
}
