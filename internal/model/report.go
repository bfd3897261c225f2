package model

import "time"

// Reporter is the citizen profile attached to a report.
type Reporter struct {
	ID           string `json:"_id,omitempty"`
	Name         string `json:"name"`
	Phone        string `json:"phone,omitempty"`
	JenisKelamin string `json:"jenis_kelamin,omitempty"`
}

// Location is where the complaint happened, with the administrative
// hierarchy resolved by the backend (or by reverse geocoding).
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description,omitempty"`
	Desa        string  `json:"desa,omitempty"`
	Kecamatan   string  `json:"kecamatan,omitempty"`
	Kabupaten   string  `json:"kabupaten,omitempty"`
}

// Report is a citizen complaint. The backend owns it; the service only holds
// working copies.
type Report struct {
	ID        string    `json:"_id"`
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	User      Reporter  `json:"user"`
	Location  Location  `json:"location"`
	Photos    []string  `json:"photos,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Tindakan  *Tindakan `json:"tindakan,omitempty"`
}

// Status returns the report's workflow status, defaulting to the initial
// status when no action record is attached.
func (r *Report) Status() Status {
	if r.Tindakan == nil || !r.Tindakan.Status.Valid() {
		return StatusPerluVerifikasi
	}
	return r.Tindakan.Status
}

// ReportPage is one page of the report listing.
type ReportPage struct {
	Data       []Report `json:"data"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalCount int      `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}
