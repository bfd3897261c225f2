package workflow

import (
	"pengaduan/internal/model"
)

// fieldState is what a required-field check sees in the draft.
type fieldState int

const (
	fieldAbsent fieldState = iota
	fieldEmpty
	fieldSet
)

// FieldRule names a draft field that must not be empty at a step.
type FieldRule struct {
	Field string
	state func(t *model.Tindakan) fieldState
}

// Step is one row of the transition table.
type Step struct {
	Index        int
	Next         model.Status // "" when nothing follows
	Prev         model.Status // "" at the first step
	Required     []FieldRule
	CanRetreat   bool
	CanTerminate bool // reject / complete shortcuts
}

// Transitions is the workflow table keyed by status.
var Transitions = buildTransitions()

// requiredFields lists the field rules of the steps that have any.
var requiredFields = map[model.Status][]FieldRule{
	model.StatusVerifikasiSituasi: {
		stringRule("situasi", func(t *model.Tindakan) *string { return t.Situasi }),
	},
	model.StatusVerifikasiBerkas: {
		stringRule("trackingId", func(t *model.Tindakan) *string { return t.TrackingID }),
		stringRule("url", func(t *model.Tindakan) *string { return t.URL }),
		stringRule("status_laporan", func(t *model.Tindakan) *string { return t.StatusLaporan }),
	},
	model.StatusProsesOPD: {
		{Field: "kesimpulan", state: func(t *model.Tindakan) fieldState { return sliceState(t.Kesimpulan) }},
		{Field: "opd", state: func(t *model.Tindakan) fieldState { return sliceState(t.OPD) }},
	},
}

func buildTransitions() map[model.Status]Step {
	table := make(map[model.Status]Step, len(model.Statuses))
	for i, status := range model.Statuses {
		step := Step{
			Index:        i,
			Required:     requiredFields[status],
			CanRetreat:   i >= 1 && i <= 3,
			CanTerminate: i == 0,
		}
		if next, ok := model.At(i + 1); ok {
			step.Next = next
		}
		if prev, ok := model.At(i - 1); ok {
			step.Prev = prev
		}
		table[status] = step
	}
	return table
}

// StepOf returns the table row of status, falling back to the first step
// for unknown values.
func StepOf(status model.Status) Step {
	if step, ok := Transitions[status]; ok {
		return step
	}
	return Transitions[model.Statuses[0]]
}

// MissingFields returns the required fields of step that are present in t
// but empty. Absent fields pass.
func (s Step) MissingFields(t *model.Tindakan) []string {
	var missing []string
	for _, rule := range s.Required {
		if rule.state(t) == fieldEmpty {
			missing = append(missing, rule.Field)
		}
	}
	return missing
}

func stringRule(field string, get func(t *model.Tindakan) *string) FieldRule {
	return FieldRule{
		Field: field,
		state: func(t *model.Tindakan) fieldState {
			v := get(t)
			switch {
			case v == nil:
				return fieldAbsent
			case *v == "":
				return fieldEmpty
			default:
				return fieldSet
			}
		},
	}
}

func sliceState[T any](s []T) fieldState {
	switch {
	case s == nil:
		return fieldAbsent
	case len(s) == 0:
		return fieldEmpty
	default:
		return fieldSet
	}
}

// IsTerminal reports whether the dashboard stops offering progression at
// status. The engine itself does not enforce it.
func IsTerminal(status model.Status) bool {
	return status == model.StatusDitutup || status == model.StatusSelesaiPengaduan
}
