package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempStore(t *testing.T) (*Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.csv")
	return New(path), path
}

func TestSaveAndReload(t *testing.T) {
	s, path := tempStore(t)

	if !s.IsNew("r1") {
		t.Fatal("empty store should report everything as new")
	}

	err := s.SaveMultiple([]Record{
		{ReportID: "r1", MessageID: "10", Status: "Perlu Verifikasi", Reporter: "Siti"},
		{ReportID: "r2", Status: "Ditutup", Reporter: "Budi, S.Pd"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsNew("r1") || s.IsNew("r2") {
		t.Error("saved reports should not be new")
	}

	reloaded := New(path)
	r, ok := reloaded.Get("r2")
	if !ok {
		t.Fatal("r2 should survive a restart")
	}
	if r.Reporter != "Budi, S.Pd" || r.Status != "Ditutup" {
		t.Errorf("unexpected record %+v", r)
	}
	if len(reloaded.All()) != 2 {
		t.Errorf("expected 2 records, got %d", len(reloaded.All()))
	}
}

func TestSaveMultipleEmpty(t *testing.T) {
	s, path := tempStore(t)
	if err := s.SaveMultiple(nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("an empty batch should not create the file")
	}
}

func TestRemove(t *testing.T) {
	s, path := tempStore(t)
	s.SaveMultiple([]Record{{ReportID: "r1"}, {ReportID: "r2"}})

	if err := s.Remove("r1"); err != nil {
		t.Fatal(err)
	}
	if !s.IsNew("r1") {
		t.Error("removed report should be new again")
	}
	if err := s.Remove("missing"); err != nil {
		t.Errorf("removing an unknown id should be a no-op, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "r1") {
		t.Errorf("file should no longer contain r1:\n%s", data)
	}
	if !strings.HasPrefix(string(data), "report_id,") {
		t.Errorf("rewritten file should carry a header:\n%s", data)
	}

	// The header row is skipped on load.
	reloaded := New(path)
	if all := reloaded.All(); len(all) != 1 || all[0].ReportID != "r2" {
		t.Errorf("unexpected records after reload: %+v", all)
	}
}

func TestUpdateStatus(t *testing.T) {
	s, path := tempStore(t)
	s.SaveMultiple([]Record{{ReportID: "r1", Status: "Perlu Verifikasi"}})

	err := s.UpdateStatus(map[string]string{"r1": "Verifikasi Situasi", "unknown": "Ditutup"})
	if err != nil {
		t.Fatal(err)
	}

	r, _ := New(path).Get("r1")
	if r.Status != "Verifikasi Situasi" {
		t.Errorf("expected updated status, got %q", r.Status)
	}
	if !s.IsNew("unknown") {
		t.Error("UpdateStatus must not add unknown reports")
	}
}
