// Package model provides the report and action-record types exchanged with
// the complaint backend.
//
// Optional fields of Tindakan are pointers (scalars) or slices that keep the
// nil / empty distinction, so a field missing from the backend JSON stays
// distinguishable from a field that is present but empty. The workflow's
// required-field policy depends on that difference.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxPhotos is the maximum number of evidence photos on an action record.
const MaxPhotos = 5

// Kesimpulan is one timestamped follow-up note of an action record.
type Kesimpulan struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Tindakan is the mutable workflow state attached 1:1 to a report.
type Tindakan struct {
	ID            string       `json:"_id,omitempty"`
	Report        string       `json:"report,omitempty"`
	Status        Status       `json:"status"`
	Situasi       *string      `json:"situasi,omitzero"`
	OPD           []string     `json:"opd,omitzero"`
	TrackingID    *string      `json:"trackingId,omitzero"`
	URL           *string      `json:"url,omitzero"`
	StatusLaporan *string      `json:"status_laporan,omitzero"`
	Kesimpulan    []Kesimpulan `json:"kesimpulan,omitzero"`
	Photos        []string     `json:"photos,omitzero"`
	Prioritas     *Flag        `json:"prioritas,omitzero"`
	ProcessedBy   *AdminRef    `json:"processed_by,omitzero"`
	Tag           []string     `json:"tag,omitzero"`
	Keterangan    *string      `json:"keterangan,omitzero"`
	UpdatedAt     *time.Time   `json:"updatedAt,omitzero"`
}

// Clone returns a deep copy of t.
func (t *Tindakan) Clone() *Tindakan {
	if t == nil {
		return nil
	}
	c := *t
	c.Situasi = cloneString(t.Situasi)
	c.TrackingID = cloneString(t.TrackingID)
	c.URL = cloneString(t.URL)
	c.StatusLaporan = cloneString(t.StatusLaporan)
	c.Keterangan = cloneString(t.Keterangan)
	c.OPD = cloneSlice(t.OPD)
	c.Kesimpulan = cloneSlice(t.Kesimpulan)
	c.Photos = cloneSlice(t.Photos)
	c.Tag = cloneSlice(t.Tag)
	if t.Prioritas != nil {
		p := *t.Prioritas
		c.Prioritas = &p
	}
	if t.ProcessedBy != nil {
		p := *t.ProcessedBy
		c.ProcessedBy = &p
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

// IsUrgent reports whether the situasi is Darurat.
func (t *Tindakan) IsUrgent() bool {
	return t.Situasi != nil && *t.Situasi == SituasiDarurat
}

// ProcessedByID returns the processed_by admin id, or "" when unset.
func (t *Tindakan) ProcessedByID() string {
	if t.ProcessedBy == nil {
		return ""
	}
	return t.ProcessedBy.ID
}

// String returns a pointer to s. Handy for building drafts.
func String(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Flag is the boolean-like prioritas value. The backend has stored it both as
// a JSON bool and as a string ("Ya", "Tidak", "true", "false").
type Flag bool

// UnmarshalJSON accepts booleans, numbers and the known string spellings.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "ya", "true", "1", "yes", "y":
			*f = true
		case "tidak", "false", "0", "no", "n", "":
			*f = false
		default:
			return fmt.Errorf("invalid prioritas value %q", s)
		}
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = n != 0
		return nil
	}

	return fmt.Errorf("invalid prioritas value %s", string(data))
}

// AdminRef identifies the admin who processed a record. The backend sends
// either the bare id or a populated user object; it is always written back as
// the bare id.
type AdminRef struct {
	ID   string
	Name string
}

// UnmarshalJSON accepts "id" or {"_id": "...", "name": "..."}.
func (a *AdminRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*a = AdminRef{ID: id}
		return nil
	}

	var obj struct {
		ID       string `json:"_id"`
		AltID    string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid processed_by value: %w", err)
	}
	a.ID = obj.ID
	if a.ID == "" {
		a.ID = obj.AltID
	}
	a.Name = obj.Name
	if a.Name == "" {
		a.Name = obj.Username
	}
	return nil
}

// MarshalJSON writes the bare id.
func (a AdminRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.ID)
}
