// Package storage remembers which reports the poller has already announced.
//
// Two tiers:
//  1. CSV file for persistence (survives restarts)
//  2. In-memory map for O(1) "is this new?" checks
//
// Thread-safety:
//   - All operations are protected by a mutex
//   - File writes happen under the same lock as map updates
package storage

import (
	"bufio"
	"encoding/csv"
	"log"
	"os"
	"sort"
	"sync"
)

// DefaultFile is used when no path is configured.
const DefaultFile = "reports.csv"

// bufferSize for buffered CSV writes (64KB).
const bufferSize = 64 * 1024

// header is written on every full rewrite.
var header = []string{"report_id", "message_id", "status", "reporter"}

// Record is one announced report.
//
// Fields:
//   - ReportID: backend _id of the report
//   - MessageID: Telegram message id of the announcement ("" when Telegram is off)
//   - Status: workflow status at the time of the last poll
//   - Reporter: reporter name, for log lines
type Record struct {
	ReportID  string
	MessageID string
	Status    string
	Reporter  string
}

func (r Record) row() []string {
	return []string{r.ReportID, r.MessageID, r.Status, r.Reporter}
}

// Storage is the seen-report store.
type Storage struct {
	path string

	mu      sync.Mutex
	records map[string]Record
}

// New creates a store backed by path and loads what it already holds.
func New(path string) *Storage {
	if path == "" {
		path = DefaultFile
	}
	s := &Storage{
		path:    path,
		records: make(map[string]Record),
	}
	s.loadFromFile()
	return s
}

// loadFromFile reads the CSV into memory.
//
// Error handling:
//   - File not found: normal on first run
//   - Parse errors: logged, loading stops with what was read
//   - Rows without an id: skipped
func (s *Storage) loadFromFile() {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("📋 No existing report file found. Creating new one...")
		} else {
			log.Println("⚠️  Failed to open report file:", err)
		}
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		log.Println("⚠️  Failed to read report file:", err)
		return
	}

	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}

		r := Record{ReportID: row[0]}
		if len(row) > 1 {
			r.MessageID = row[1]
		}
		if len(row) > 2 {
			r.Status = row[2]
		}
		if len(row) > 3 {
			r.Reporter = row[3]
		}
		s.records[r.ReportID] = r
	}

	log.Println("📚 Loaded", len(s.records), "previously seen reports from storage")
}

// IsNew reports whether reportID has never been stored.
func (s *Storage) IsNew(reportID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[reportID]
	return !ok
}

// Get returns the stored record of reportID.
func (s *Storage) Get(reportID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[reportID]
	return r, ok
}

// All returns every stored record ordered by report id.
func (s *Storage) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportID < out[j].ReportID })
	return out
}

// SaveMultiple appends records to the CSV in one batch and, only after the
// write succeeded, adds them to memory.
func (s *Storage) SaveMultiple(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	buffered := bufio.NewWriterSize(file, bufferSize)
	writer := csv.NewWriter(buffered)
	for _, r := range records {
		if err := writer.Write(r.row()); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return err
	}

	for _, r := range records {
		s.records[r.ReportID] = r
	}
	return nil
}

// UpdateStatus changes the stored status of known reports and rewrites the
// file when anything changed.
func (s *Storage) UpdateStatus(statuses map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for id, status := range statuses {
		r, ok := s.records[id]
		if !ok || r.Status == status {
			continue
		}
		r.Status = status
		s.records[id] = r
		changed = true
	}
	if !changed {
		return nil
	}
	return s.rewriteFile()
}

// Remove drops reportID and rewrites the file. Removing an unknown id is a
// no-op.
func (s *Storage) Remove(reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[reportID]; !ok {
		return nil
	}
	delete(s.records, reportID)
	return s.rewriteFile()
}

// rewriteFile writes every record (with header) over the file. Caller holds
// the lock.
func (s *Storage) rewriteFile() error {
	file, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	buffered := bufio.NewWriterSize(file, bufferSize)
	writer := csv.NewWriter(buffered)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writer.Write(s.records[id].row()); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buffered.Flush()
}
