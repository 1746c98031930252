package pipeline

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestScenarioID(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"case_7.zip", "7"},
		{"/drop/scenario42_final.zip", "42"},
		{"case_3_of_12.zip", "3"},
		{"nodigits.zip", "nodigits"},
		{"incident-2024.zip", "2024"},
	}
	for _, tt := range tests {
		if got := ScenarioID(tt.name); got != tt.want {
			t.Errorf("ScenarioID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtract_RejectsEscapingEntry(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("../evil.txt")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := f.Write([]byte("nope")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "evil.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	dest := t.TempDir()
	if err := Extract(archive, dest); err == nil {
		t.Fatal("expected error for escaping entry")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "evil.txt")); err == nil {
		t.Fatal("entry escaped the extraction directory")
	}
}

func TestExtract_NestedDirectories(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("case/logs/app.log")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := f.Write([]byte("2024-01-01T10:00:00 ERROR db: down\n")); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "nested.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	dest := t.TempDir()
	if err := Extract(archive, dest); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "case", "logs", "app.log")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
}

func TestLocateKB(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	kbPath := filepath.Join(nested, "anomalies_problems.csv")
	if err := os.WriteFile(kbPath, []byte("h\n"), 0o644); err != nil {
		t.Fatalf("write kb: %v", err)
	}
	// Decoy with the wrong extension
	if err := os.WriteFile(filepath.Join(root, "anomalies_problems.xls"), []byte("h\n"), 0o644); err != nil {
		t.Fatalf("write decoy: %v", err)
	}

	got, err := LocateKB(root)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if got != kbPath {
		t.Errorf("located %q, want %q", got, kbPath)
	}
}

func TestLocateKB_Missing(t *testing.T) {
	if _, err := LocateKB(t.TempDir()); err == nil {
		t.Fatal("expected error when knowledge base is absent")
	}
}
