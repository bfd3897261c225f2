// Package report periodically refetches the report listing.
//
// Each poll:
//  1. Pages through GET /reports (up to MaxPages)
//  2. Finds reports that are not in storage yet and announces them
//     concurrently
//  3. Persists the new ids and refreshes the stored statuses
//  4. Builds the status histogram and hands it to the summary sink
//  5. Records the outcome on the health monitor
//
// A poll that keeps failing triggers a critical alert.
package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"pengaduan/internal/metrics"
	"pengaduan/internal/model"
	"pengaduan/internal/storage"
	"pengaduan/internal/summary"
)

// alertAfter is the number of consecutive failed polls that raises an alert.
const alertAfter = 3

// Lister is the part of the backend client the poller uses.
type Lister interface {
	ListReports(ctx context.Context, page, limit int) (*model.ReportPage, error)
}

// Alerter raises a critical alert.
type Alerter interface {
	SendCriticalAlert(ctx context.Context, errorType, errorMsg string, retryCount int) error
}

// HealthRecorder is told about every poll.
type HealthRecorder interface {
	RecordPoll(total int, err error)
}

// SummarySink receives the histogram of a successful poll.
type SummarySink func(ctx context.Context, counts summary.Counts)

// Config tunes the poller.
type Config struct {
	Interval    time.Duration
	PageSize    int
	MaxPages    int
	Workers     int
	SendPause   time.Duration
	SummaryEach int // send the summary every N polls (0 = never)
}

// Result is the outcome of one poll.
type Result struct {
	Total  int
	New    []string
	Counts summary.Counts
}

// Poller is not safe for concurrent Poll calls; Run serialises them.
type Poller struct {
	lister    Lister
	store     *storage.Storage
	announcer Announcer
	alerter   Alerter
	health    HealthRecorder
	onSummary SummarySink
	cfg       Config

	polls    int
	failures int
}

// Option configures a Poller.
type Option func(*Poller)

// WithAnnouncer announces new reports.
func WithAnnouncer(a Announcer) Option {
	return func(p *Poller) { p.announcer = a }
}

// WithAlerter raises alerts after repeated failures.
func WithAlerter(a Alerter) Option {
	return func(p *Poller) { p.alerter = a }
}

// WithHealth records poll outcomes.
func WithHealth(h HealthRecorder) Option {
	return func(p *Poller) { p.health = h }
}

// WithSummary receives the histogram after successful polls.
func WithSummary(s SummarySink) Option {
	return func(p *Poller) { p.onSummary = s }
}

// NewPoller creates a poller over lister and store.
func NewPoller(lister Lister, store *storage.Storage, cfg Config, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	p := &Poller{lister: lister, store: store, cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls immediately and then every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	log.Printf("⏰ Polling reports every %v", p.cfg.Interval)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx)

		select {
		case <-ctx.Done():
			log.Println("✓ Report poller stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	log.Println("📬 Refreshing report list...")
	log.Println("⏰ Time:", time.Now().Format("2006-01-02 15:04:05"))

	res, err := p.Poll(ctx)
	if err != nil {
		log.Println("⚠️  Poll failed:", err)
		return
	}
	if len(res.New) == 0 {
		log.Println("✓ No new reports")
	} else {
		log.Printf("✓ %d new report(s)", len(res.New))
	}
	log.Println("═══════════════════════════════════════════════════════════")
}

// Poll runs a single poll.
func (p *Poller) Poll(ctx context.Context) (*Result, error) {
	reports, err := p.fetchAll(ctx)
	if p.health != nil {
		p.health.RecordPoll(len(reports), err)
	}
	if err != nil {
		p.failures++
		if p.failures == alertAfter && p.alerter != nil {
			if aerr := p.alerter.SendCriticalAlert(ctx, "Report Poll Failure", err.Error(), p.failures); aerr != nil {
				log.Println("⚠️  Failed to send alert:", aerr)
			}
		}
		return nil, err
	}
	p.failures = 0
	p.polls++

	newIDs := p.recordNew(ctx, reports)

	statuses := make(map[string]string, len(reports))
	for i := range reports {
		statuses[reports[i].ID] = string(reports[i].Status())
	}
	if err := p.store.UpdateStatus(statuses); err != nil {
		log.Println("⚠️  Failed to update stored statuses:", err)
	}

	counts := summary.Count(reports)
	for _, sc := range counts {
		metrics.SetReportCount(string(sc.Status), sc.Count)
	}

	if p.onSummary != nil && p.cfg.SummaryEach > 0 && (p.polls-1)%p.cfg.SummaryEach == 0 {
		p.onSummary(ctx, counts)
	}

	return &Result{Total: len(reports), New: newIDs, Counts: counts}, nil
}

// fetchAll pages through the listing.
func (p *Poller) fetchAll(ctx context.Context) ([]model.Report, error) {
	var all []model.Report
	for page := 1; page <= p.cfg.MaxPages; page++ {
		result, err := p.lister.ListReports(ctx, page, p.cfg.PageSize)
		if err != nil {
			return all, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		log.Printf("  📄 Page %d: %d report(s)", page, len(result.Data))
		all = append(all, result.Data...)

		if len(result.Data) < p.cfg.PageSize || (result.TotalPages > 0 && page >= result.TotalPages) {
			return all, nil
		}
	}
	log.Printf("🛑 Reached maximum page limit (%d). Stopping.", p.cfg.MaxPages)
	return all, nil
}

// recordNew announces and stores the reports not seen before. A report whose
// announcement failed is not stored, so the next poll retries it.
func (p *Poller) recordNew(ctx context.Context, reports []model.Report) []string {
	var fresh []*model.Report
	for i := range reports {
		if reports[i].ID != "" && p.store.IsNew(reports[i].ID) {
			fresh = append(fresh, &reports[i])
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	var records []storage.Record
	if p.announcer == nil {
		for _, r := range fresh {
			records = append(records, newRecord(r, ""))
		}
	} else {
		pool := newAnnouncePool(ctx, p.announcer, p.cfg.Workers, p.cfg.SendPause)
		go func() {
			for _, r := range fresh {
				pool.Submit(r)
			}
			pool.Close()
		}()

		for res := range pool.Results() {
			if res.Err != nil {
				continue
			}
			records = append(records, newRecord(res.Report, res.MessageID))
		}
	}

	if err := p.store.SaveMultiple(records); err != nil {
		log.Println("⚠️  Failed to save new reports:", err)
		return nil
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ReportID
	}
	return ids
}

func newRecord(r *model.Report, messageID string) storage.Record {
	return storage.Record{
		ReportID:  r.ID,
		MessageID: messageID,
		Status:    string(r.Status()),
		Reporter:  r.User.Name,
	}
}
