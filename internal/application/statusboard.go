package application

import (
	"sync"
	"time"

	"github.com/ericfisherdev/prminer/internal/domain/model"
)

// PassStatus is a snapshot of the most recent pass.
type PassStatus struct {
	Report     model.PassReport
	Error      string
	FinishedAt time.Time
	Passes     int
	Failures   int
}

// StatusBoard records the outcome of the latest pass for concurrent readers.
type StatusBoard struct {
	mu     sync.RWMutex
	status PassStatus
	now    func() time.Time
}

// Compile-time interface satisfaction check.
var _ PassObserver = (*StatusBoard)(nil)

// NewStatusBoard creates an empty StatusBoard.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{now: time.Now}
}

// ObservePass records report as the latest pass.
func (b *StatusBoard) ObservePass(report model.PassReport, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.status.Report = report
	b.status.FinishedAt = b.now()
	b.status.Passes++
	b.status.Error = ""
	if err != nil {
		b.status.Error = err.Error()
		b.status.Failures++
	}
}

// Status returns the latest snapshot and whether any pass has finished yet.
func (b *StatusBoard) Status() (PassStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status, b.status.Passes > 0
}
