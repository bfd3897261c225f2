package workflow

import (
	"testing"

	"pengaduan/internal/model"
)

func TestTransitionTable(t *testing.T) {
	if len(Transitions) != len(model.Statuses) {
		t.Fatalf("expected a row per status, got %d", len(Transitions))
	}

	for i, status := range model.Statuses {
		step := Transitions[status]
		if step.Index != i {
			t.Errorf("%q: expected index %d, got %d", status, i, step.Index)
		}
		if i+1 < len(model.Statuses) && step.Next != model.Statuses[i+1] {
			t.Errorf("%q: expected next %q, got %q", status, model.Statuses[i+1], step.Next)
		}
		if i > 0 && step.Prev != model.Statuses[i-1] {
			t.Errorf("%q: expected prev %q, got %q", status, model.Statuses[i-1], step.Prev)
		}
		if step.CanRetreat != (i >= 1 && i <= 3) {
			t.Errorf("%q: unexpected CanRetreat %v", status, step.CanRetreat)
		}
		if step.CanTerminate != (i == 0) {
			t.Errorf("%q: unexpected CanTerminate %v", status, step.CanTerminate)
		}
	}

	if Transitions[model.StatusDitutup].Next != "" {
		t.Error("nothing follows the last status")
	}
	if Transitions[model.StatusPerluVerifikasi].Prev != "" {
		t.Error("nothing precedes the first status")
	}
}

func TestStepOfUnknownStatus(t *testing.T) {
	if StepOf("Diarsipkan").Index != 0 {
		t.Error("unknown statuses map to the first step")
	}
	if StepOf(model.StatusProsesOPD).Index != 3 {
		t.Error("known statuses map to their own row")
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range model.Statuses {
		want := status == model.StatusDitutup || status == model.StatusSelesaiPengaduan
		if IsTerminal(status) != want {
			t.Errorf("%q: expected terminal=%v", status, want)
		}
	}
}
