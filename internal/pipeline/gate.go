package pipeline

import (
	"fmt"
	"sync"
)

// BusyError is returned when a scan is submitted while another is running.
// ScanID names the in-flight scan so callers can report it.
type BusyError struct {
	ScanID string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("scan already in flight: %s", e.ScanID)
}

// Gate serializes pipeline execution: at most one scan holds it at a time.
// Acquire never blocks; a losing submission gets a BusyError immediately.
type Gate struct {
	mu     sync.Mutex
	held   bool
	scanID string
}

func NewGate() *Gate {
	return &Gate{}
}

// Acquire claims the gate for scanID, failing fast if it is held.
func (g *Gate) Acquire(scanID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return &BusyError{ScanID: g.scanID}
	}
	g.held = true
	g.scanID = scanID
	return nil
}

// Bind renames the holder. Used when the gate is claimed before the scan
// record (and its id) exists.
func (g *Gate) Bind(scanID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		g.scanID = scanID
	}
}

// Release frees the gate.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
	g.scanID = ""
}

// InFlight returns the current holder's scan id, if any.
func (g *Gate) InFlight() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scanID, g.held
}
