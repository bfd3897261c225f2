package summary

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"pengaduan/internal/model"
)

func report(status model.Status) model.Report {
	return model.Report{Tindakan: &model.Tindakan{Status: status}}
}

func TestCount(t *testing.T) {
	reports := []model.Report{
		report(model.StatusPerluVerifikasi),
		report(model.StatusProsesOPD),
		report(model.StatusProsesOPD),
		report(model.StatusDitutup),
		report("Diarsipkan"), // unknown
		{},                   // no action record
	}

	counts := Count(reports)

	if len(counts) != len(model.Statuses) {
		t.Fatalf("expected one entry per status, got %d", len(counts))
	}
	for i, sc := range counts {
		if sc.Status != model.Statuses[i] {
			t.Errorf("entry %d: expected %q, got %q", i, model.Statuses[i], sc.Status)
		}
	}

	tests := []struct {
		status model.Status
		want   int
	}{
		{model.StatusPerluVerifikasi, 3},
		{model.StatusProsesOPD, 2},
		{model.StatusDitutup, 1},
		{model.StatusSelesaiPengaduan, 0},
	}
	for _, tt := range tests {
		if got := counts.Of(tt.status); got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.status, tt.want, got)
		}
	}
	if counts.Total() != len(reports) {
		t.Errorf("expected total %d, got %d", len(reports), counts.Total())
	}
}

func TestRenderChart(t *testing.T) {
	counts := Count([]model.Report{report(model.StatusProsesOPD), report(model.StatusDitutup)})

	data, err := RenderChart(counts, "Ringkasan Pengaduan")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != chartWidth || b.Dy() != chartHeight {
		t.Errorf("unexpected size %v", b)
	}
}

func TestRenderChartEmptyCounts(t *testing.T) {
	if _, err := RenderChart(nil, "x"); err == nil {
		t.Error("expected error for empty counts")
	}

	// All zero still renders.
	if _, err := RenderChart(Count(nil), "x"); err != nil {
		t.Errorf("zero counts should render: %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.png")
	data, err := WriteFile(path, Count(nil), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("expected PNG bytes")
	}
}
