package validation

import (
	"sync"

	"MarketPulse/pkg/util"
)

// DefaultWindow is the number of recent outcomes kept per asset.
const DefaultWindow = 100

// RollingWindow keeps the most recent outcomes per asset for quick accuracy
// reads without scanning the full prediction history.
type RollingWindow struct {
	mu   sync.RWMutex
	size int
	hits map[int64][]bool
}

func NewRollingWindow(size int) *RollingWindow {
	if size <= 0 {
		size = DefaultWindow
	}
	return &RollingWindow{size: size, hits: make(map[int64][]bool)}
}

// Record appends one outcome for the asset, evicting the oldest when full.
func (w *RollingWindow) Record(assetID int64, success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	h := append(w.hits[assetID], success)
	if len(h) > w.size {
		h = append(h[:0:0], h[len(h)-w.size:]...)
	}
	w.hits[assetID] = h
}

// Len returns how many outcomes are held for the asset.
func (w *RollingWindow) Len(assetID int64) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.hits[assetID])
}

// Accuracy returns the success percentage over the window, and false when
// the asset has no recorded outcomes.
func (w *RollingWindow) Accuracy(assetID int64) (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	h := w.hits[assetID]
	if len(h) == 0 {
		return 0, false
	}
	wins := 0
	for _, ok := range h {
		if ok {
			wins++
		}
	}
	return util.Round(100*float64(wins)/float64(len(h)), 1), true
}
