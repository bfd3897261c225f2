package model

// Status is the workflow position of an action record.
type Status string

// The fixed, ordered workflow statuses.
const (
	StatusPerluVerifikasi   Status = "Perlu Verifikasi"
	StatusVerifikasiSituasi Status = "Verifikasi Situasi"
	StatusVerifikasiBerkas  Status = "Verifikasi Kelengkapan Berkas"
	StatusProsesOPD         Status = "Proses OPD Terkait"
	StatusSelesaiPenanganan Status = "Selesai Penanganan"
	StatusSelesaiPengaduan  Status = "Selesai Pengaduan"
	StatusDitutup           Status = "Ditutup"
)

// Statuses lists every status in workflow order. The slice index is the
// step index.
var Statuses = []Status{
	StatusPerluVerifikasi,
	StatusVerifikasiSituasi,
	StatusVerifikasiBerkas,
	StatusProsesOPD,
	StatusSelesaiPenanganan,
	StatusSelesaiPengaduan,
	StatusDitutup,
}

// SituasiDarurat marks an urgent report. Advancing an urgent record jumps
// straight to StatusSelesaiPengaduan.
const SituasiDarurat = "Darurat"

// IndexOf returns the step index of s, or 0 when s is not a known status.
func IndexOf(s Status) int {
	for i, status := range Statuses {
		if status == s {
			return i
		}
	}
	return 0
}

// Valid reports whether s is one of the fixed statuses.
func (s Status) Valid() bool {
	for _, status := range Statuses {
		if status == s {
			return true
		}
	}
	return false
}

// At returns the status at step index i and whether i is in range.
func At(i int) (Status, bool) {
	if i < 0 || i >= len(Statuses) {
		return "", false
	}
	return Statuses[i], true
}
