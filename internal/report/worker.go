package report

import (
	"context"
	"log"
	"sync"
	"time"

	"pengaduan/internal/model"
)

// Announcer publishes a newly seen report and returns a message id ("" when
// nothing was sent).
type Announcer interface {
	SendReport(ctx context.Context, r *model.Report) (string, error)
}

// announceResult is the outcome of one announcement.
type announceResult struct {
	Report    *model.Report
	MessageID string
	Err       error
}

// announcePool announces new reports concurrently.
//
// Architecture:
//   - Each worker runs in its own goroutine pulling from a shared jobs channel
//   - Results go to a buffered results channel
//   - Close drains the workers before closing results
type announcePool struct {
	jobs    chan *model.Report
	results chan announceResult
	wg      sync.WaitGroup
}

// newAnnouncePool starts workerCount workers. pause is slept after every
// announcement to stay under Telegram's per-chat limit.
func newAnnouncePool(ctx context.Context, a Announcer, workerCount int, pause time.Duration) *announcePool {
	if workerCount < 1 {
		workerCount = 1
	}

	p := &announcePool{
		jobs:    make(chan *model.Report, 100),
		results: make(chan announceResult, 100),
	}

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for r := range p.jobs {
				msgID, err := a.SendReport(ctx, r)
				if err != nil {
					log.Printf("  [Worker #%d] ✗ Failed to announce report %s: %v", id, r.ID, err)
				}
				p.results <- announceResult{Report: r, MessageID: msgID, Err: err}
				if pause > 0 {
					time.Sleep(pause)
				}
			}
		}(i + 1)
	}

	return p
}

// Submit queues a report; blocks when the buffer is full.
func (p *announcePool) Submit(r *model.Report) {
	p.jobs <- r
}

// Close stops accepting jobs and waits for the workers.
func (p *announcePool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}

// Results returns the results channel.
func (p *announcePool) Results() <-chan announceResult {
	return p.results
}
