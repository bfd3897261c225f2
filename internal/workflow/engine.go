// Package workflow drives one complaint's action record through the fixed
// status list.
//
// An Engine holds the working draft of a single report's tindakan and the
// step index derived from it. Every mutation goes to the backend first; the
// engine never advances its step locally. After a successful transition it
// refetches the report and reinitialises from the server copy, so the
// backend stays the only source of truth (last write wins, no concurrency
// token).
//
// Failure policy:
//   - Validation, identity and backend failures of the main save are hard:
//     the draft is left untouched and an error notice is posted
//   - The processed-by annotation when leaving the first step is best
//     effort: its failures are returned as warnings
//   - Only one action runs at a time per engine; a second one gets ErrBusy
package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/model"
)

// Backend is the part of the REST client the engine uses.
type Backend interface {
	GetReport(ctx context.Context, id string) (*model.Report, error)
	UpdateTindakan(ctx context.Context, reportID string, t *model.Tindakan) (*model.Tindakan, error)
	UpdateProcessedBy(ctx context.Context, reportID, userLoginID string) error
	AddKesimpulan(ctx context.Context, actionID, text string) ([]model.Kesimpulan, error)
	EditKesimpulan(ctx context.Context, actionID string, index int, text string) ([]model.Kesimpulan, error)
	DeleteKesimpulan(ctx context.Context, actionID string, index int) ([]model.Kesimpulan, error)
}

// Identity resolves the signed-in admin.
type Identity interface {
	AdminID(ctx context.Context) (string, error)
}

// Notifier shows transient user-facing messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Transition describes a persisted status change.
type Transition struct {
	ReportID string
	From     model.Status
	To       model.Status
	Actor    string
	At       time.Time
}

// Observer is told about every persisted status change.
type Observer interface {
	Transitioned(tr Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(tr Transition)

func (f ObserverFunc) Transitioned(tr Transition) { f(tr) }

// Result is the outcome of a successful transition.
type Result struct {
	// Record is the reloaded server copy (nil when the reload failed).
	Record *model.Tindakan
	// Warnings collects failures of best-effort steps.
	Warnings []string
}

// SavedMessage is the success notice posted after a save.
const SavedMessage = "Data berhasil disimpan"

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets where success and error notices go.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine is safe for concurrent use; actions are serialised by a busy flag.
type Engine struct {
	backend  Backend
	identity Identity
	notifier Notifier
	observer Observer
	now      func() time.Time

	mu             sync.Mutex
	draft          *model.Tindakan
	step           int
	retreatPending bool
	busy           bool
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// New creates an engine with an empty draft at the first step.
func New(backend Backend, identity Identity, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		identity: identity,
		notifier: nopNotifier{},
		now:      time.Now,
		draft:    &model.Tindakan{Status: model.StatusPerluVerifikasi},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize copies record into the draft and derives the step index from
// its status (0 for unknown statuses).
func (e *Engine) Initialize(record *model.Tindakan) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.initialize(record)
}

func (e *Engine) initialize(record *model.Tindakan) {
	if record == nil {
		record = &model.Tindakan{}
	}
	e.draft = record.Clone()
	e.step = model.IndexOf(record.Status)
	e.retreatPending = false
}

// Load fetches report reportID and initialises the engine from it.
func (e *Engine) Load(ctx context.Context, reportID string) (*model.Tindakan, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	return e.reload(ctx, reportID)
}

// Reload refetches the current report and reinitialises from it.
func (e *Engine) Reload(ctx context.Context) (*model.Tindakan, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	return e.reload(ctx, e.ReportID())
}

func (e *Engine) reload(ctx context.Context, reportID string) (*model.Tindakan, error) {
	if reportID == "" {
		return nil, apperrors.NewValidationError("report id is missing", "report")
	}

	report, err := e.backend.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	record := report.Tindakan
	if record == nil {
		record = &model.Tindakan{Status: model.StatusPerluVerifikasi}
	}
	record = record.Clone()
	if record.Report == "" {
		record.Report = reportID
	}

	e.mu.Lock()
	e.initialize(record)
	e.mu.Unlock()

	return record.Clone(), nil
}

// Draft returns a copy of the working draft.
func (e *Engine) Draft() *model.Tindakan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Edit applies fn to the draft. It is how callers fill in fields before
// advancing; nothing is sent to the backend.
func (e *Engine) Edit(fn func(t *model.Tindakan)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return apperrors.ErrBusy
	}
	fn(e.draft)
	return nil
}

// Step returns the current step index.
func (e *Engine) Step() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// Status returns the status at the current step.
func (e *Engine) Status() model.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.Statuses[e.step]
}

// ReportID returns the report the draft belongs to.
func (e *Engine) ReportID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Report
}

// ValidateCurrentStep checks the required fields of the current step.
// Only fields present in the draft with an empty value fail; absent fields
// pass.
func (e *Engine) ValidateCurrentStep() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validate()
}

func (e *Engine) validate() error {
	status := model.Statuses[e.step]
	missing := Transitions[status].MissingFields(e.draft)
	if len(missing) > 0 {
		return apperrors.NewValidationError(fmt.Sprintf("required fields for %q are empty", status), missing...)
	}
	return nil
}

// Valid is ValidateCurrentStep as a bool.
func (e *Engine) Valid() bool {
	return e.ValidateCurrentStep() == nil
}

// AdvanceStep moves the record one step forward, or straight to
// Selesai Pengaduan when its situasi is Darurat.
//
// Flow:
//  1. Validate the current step (blocks on failure)
//  2. Leaving the first step: record processed-by (best effort, warnings)
//  3. Save with the target status
//  4. Reload from the backend
func (e *Engine) AdvanceStep(ctx context.Context) (*Result, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	e.mu.Lock()
	status := model.Statuses[e.step]
	step := Transitions[status]
	target := step.Next
	if e.draft.IsUrgent() {
		target = model.StatusSelesaiPengaduan
	}
	verr := e.validate()
	reportID := e.draft.Report
	e.mu.Unlock()

	if step.Next == "" {
		return nil, apperrors.NewStepError("advance", string(status))
	}
	if verr != nil {
		e.notifier.Error("Lengkapi data terlebih dahulu: " + strings.Join(fieldsOf(verr), ", "))
		return nil, verr
	}

	var warnings []string
	if step.Index == 0 {
		if w := e.markProcessedBy(ctx, reportID); w != "" {
			warnings = append(warnings, w)
		}
	}

	if _, err := e.save(ctx, func(t *model.Tindakan) { t.Status = target }); err != nil {
		return nil, err
	}

	return e.finish(ctx, reportID, warnings), nil
}

// markProcessedBy records the acting admin and returns a warning instead of
// failing.
func (e *Engine) markProcessedBy(ctx context.Context, reportID string) string {
	if reportID == "" {
		return "processed-by skipped: report id is missing"
	}

	adminID, err := e.identity.AdminID(ctx)
	if err != nil {
		log.Printf("  ⚠️  Skipping processed-by for report %s: %v", reportID, err)
		return fmt.Sprintf("processed-by skipped: %v", err)
	}

	if err := e.backend.UpdateProcessedBy(ctx, reportID, adminID); err != nil {
		log.Printf("  ⚠️  processed-by update for report %s failed: %v", reportID, err)
		return fmt.Sprintf("processed-by update failed: %v", err)
	}
	return ""
}

// RequestRetreat opens the go-back confirmation. Retreat is offered at
// steps 1 to 3 only.
func (e *Engine) RequestRetreat() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return apperrors.ErrBusy
	}
	status := model.Statuses[e.step]
	if !Transitions[status].CanRetreat {
		return apperrors.NewStepError("retreat", string(status))
	}
	e.retreatPending = true
	return nil
}

// CancelRetreat dismisses a pending confirmation.
func (e *Engine) CancelRetreat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.retreatPending = false
}

// RetreatPending reports whether a go-back confirmation is open.
func (e *Engine) RetreatPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retreatPending
}

// ConfirmRetreat persists the previous status after RequestRetreat. On
// failure the engine stays where it was.
func (e *Engine) ConfirmRetreat(ctx context.Context) (*Result, error) {
	return e.retreat(ctx, true)
}

// Retreat opens and confirms the go-back in one busy section, so a
// concurrent CancelRetreat or action cannot slip in between.
func (e *Engine) Retreat(ctx context.Context) (*Result, error) {
	return e.retreat(ctx, false)
}

func (e *Engine) retreat(ctx context.Context, needPending bool) (*Result, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	e.mu.Lock()
	status := model.Statuses[e.step]
	step := Transitions[status]
	pending := e.retreatPending
	e.retreatPending = false
	reportID := e.draft.Report
	e.mu.Unlock()

	if !step.CanRetreat {
		return nil, apperrors.NewStepError("retreat", string(status))
	}
	if needPending && !pending {
		return nil, apperrors.NewStepError("retreat without confirmation", string(status))
	}

	if _, err := e.save(ctx, func(t *model.Tindakan) { t.Status = step.Prev }); err != nil {
		return nil, err
	}
	return e.finish(ctx, reportID, nil), nil
}

// Reject closes a report that has not been verified yet.
func (e *Engine) Reject(ctx context.Context, reason string) (*Result, error) {
	return e.terminate(ctx, "reject", model.StatusDitutup, reason)
}

// Complete marks a report as handled without going through verification.
func (e *Engine) Complete(ctx context.Context, reason string) (*Result, error) {
	return e.terminate(ctx, "complete", model.StatusSelesaiPenanganan, reason)
}

func (e *Engine) terminate(ctx context.Context, action string, target model.Status, reason string) (*Result, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()

	e.mu.Lock()
	status := model.Statuses[e.step]
	step := Transitions[status]
	reportID := e.draft.Report
	e.mu.Unlock()

	if !step.CanTerminate {
		return nil, apperrors.NewStepError(action, string(status))
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		e.notifier.Error("Alasan wajib diisi")
		return nil, apperrors.NewValidationError("a reason is required to "+action, "keterangan")
	}

	_, err := e.save(ctx, func(t *model.Tindakan) {
		t.Status = target
		t.Keterangan = model.String(reason)
	})
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, reportID, nil), nil
}

// Save persists the draft as it is.
func (e *Engine) Save(ctx context.Context) (*model.Tindakan, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}
	defer e.end()
	return e.save(ctx, nil)
}

// save is the persistence primitive behind every transition.
//
// Flow:
//  1. Require a report id and at most MaxPhotos photos
//  2. Resolve the admin (hard failure)
//  3. Send a copy of the draft with mutate applied, processed_by defaulted
//     and updatedAt stamped
//  4. Merge the returned processed_by into the draft
//
// On any failure the draft is untouched and an error notice is posted.
func (e *Engine) save(ctx context.Context, mutate func(t *model.Tindakan)) (*model.Tindakan, error) {
	e.mu.Lock()
	payload := e.draft.Clone()
	from := model.Statuses[e.step]
	e.mu.Unlock()

	fail := func(msg string, err error) (*model.Tindakan, error) {
		e.notifier.Error(msg)
		return nil, err
	}

	if payload.Report == "" {
		return fail("Gagal menyimpan: ID laporan tidak ditemukan",
			apperrors.NewValidationError("report id is missing", "report"))
	}
	if len(payload.Photos) > model.MaxPhotos {
		return fail(fmt.Sprintf("Maksimal %d foto", model.MaxPhotos),
			apperrors.NewValidationError(fmt.Sprintf("at most %d photos are allowed", model.MaxPhotos), "photos"))
	}

	adminID, err := e.identity.AdminID(ctx)
	if err != nil {
		return fail("Gagal menyimpan: admin tidak dikenali, silakan login ulang", err)
	}

	if mutate != nil {
		mutate(payload)
	}
	if payload.ProcessedBy == nil {
		payload.ProcessedBy = &model.AdminRef{ID: adminID}
	}
	now := e.now()
	payload.UpdatedAt = &now

	stored, err := e.backend.UpdateTindakan(ctx, payload.Report, payload)
	if err != nil {
		return fail("Gagal menyimpan: "+err.Error(), err)
	}

	e.mu.Lock()
	if stored != nil && stored.ProcessedBy != nil {
		ref := *stored.ProcessedBy
		e.draft.ProcessedBy = &ref
	} else if e.draft.ProcessedBy == nil {
		e.draft.ProcessedBy = &model.AdminRef{ID: adminID}
	}
	e.draft.UpdatedAt = &now
	if payload.Keterangan != nil {
		e.draft.Keterangan = model.String(*payload.Keterangan)
	}
	e.mu.Unlock()

	log.Printf("  ✓ Report %s saved with status %q", payload.Report, payload.Status)
	e.notifier.Success(SavedMessage)

	if payload.Status != from && e.observer != nil {
		e.observer.Transitioned(Transition{
			ReportID: payload.Report,
			From:     from,
			To:       payload.Status,
			Actor:    adminID,
			At:       now,
		})
	}

	return stored, nil
}

// finish reloads after a successful mutation. A failed reload does not
// undo the mutation; it is reported as a warning and the engine keeps its
// pre-mutation view until the next reload.
func (e *Engine) finish(ctx context.Context, reportID string, warnings []string) *Result {
	record, err := e.reload(ctx, reportID)
	if err != nil {
		log.Printf("  ⚠️  Reload of report %s failed: %v", reportID, err)
		warnings = append(warnings, fmt.Sprintf("reload failed: %v", err))
	}
	return &Result{Record: record, Warnings: warnings}
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.busy {
		return apperrors.ErrBusy
	}
	e.busy = true
	return nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// Busy reports whether an action is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

func fieldsOf(err error) []string {
	if verr, ok := err.(*apperrors.ValidationError); ok {
		return verr.Fields
	}
	return nil
}
