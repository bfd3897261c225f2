package workflow

import (
	"pengaduan/internal/model"
)

// Affordances is what the dashboard may offer for the current draft.
type Affordances struct {
	Status         model.Status `json:"status"`
	Step           int          `json:"step"`
	Next           model.Status `json:"next,omitempty"`
	NextLabel      string       `json:"nextLabel,omitempty"`
	CanAdvance     bool         `json:"canAdvance"`
	CanRetreat     bool         `json:"canRetreat"`
	CanReject      bool         `json:"canReject"`
	CanComplete    bool         `json:"canComplete"`
	RetreatPending bool         `json:"retreatPending"`
	Missing        []string     `json:"missing,omitempty"`
	Terminal       bool         `json:"terminal"`
	Busy           bool         `json:"busy"`
}

// Affordances derives the action availability from the draft.
func (e *Engine) Affordances() Affordances {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := model.Statuses[e.step]
	step := Transitions[status]
	missing := step.MissingFields(e.draft)

	a := Affordances{
		Status:         status,
		Step:           e.step,
		Next:           step.Next,
		CanRetreat:     step.CanRetreat && !e.busy,
		CanReject:      step.CanTerminate && !e.busy,
		CanComplete:    step.CanTerminate && !e.busy,
		RetreatPending: e.retreatPending,
		Missing:        missing,
		Terminal:       IsTerminal(status),
		Busy:           e.busy,
	}
	if step.Next != "" {
		if e.draft.IsUrgent() {
			a.Next = model.StatusSelesaiPengaduan
		}
		a.NextLabel = nextLabel(a.Next)
		a.CanAdvance = len(missing) == 0 && !e.busy
	}
	return a
}

func nextLabel(next model.Status) string {
	switch next {
	case model.StatusSelesaiPengaduan:
		return "Selesaikan Pengaduan"
	case model.StatusDitutup:
		return "Tutup Pengaduan"
	default:
		return "Lanjut ke " + string(next)
	}
}
