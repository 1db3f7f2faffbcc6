package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
)

type ItemStatus string

const (
	ItemDone    ItemStatus = "done"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult is the outcome of one unit of work inside a cycle, usually one asset.
type ItemResult struct {
	Key    string
	Status ItemStatus
	Err    error
}

// CycleReport collects the item results of one task cycle. A failed item
// never aborts the others.
type CycleReport struct {
	Task     string
	Started  time.Time
	Duration time.Duration
	Items    []ItemResult
}

// Counts returns the number of items per status.
func (r CycleReport) Counts() (done, skipped, failed int) {
	for _, it := range r.Items {
		switch it.Status {
		case ItemDone:
			done++
		case ItemSkipped:
			skipped++
		case ItemFailed:
			failed++
		}
	}
	return
}

// Failed returns the failed items only.
func (r CycleReport) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Status == ItemFailed {
			out = append(out, it)
		}
	}
	return out
}

func itemDone(key string) ItemResult { return ItemResult{Key: key, Status: ItemDone} }

func itemSkipped(key string, err error) ItemResult {
	return ItemResult{Key: key, Status: ItemSkipped, Err: err}
}

func itemFailed(key string, err error) ItemResult {
	return ItemResult{Key: key, Status: ItemFailed, Err: err}
}

// classify maps an error to skipped when it only means "not enough data yet".
func classify(key string, err error) ItemResult {
	switch {
	case err == nil:
		return itemDone(key)
	case errors.Is(err, models.ErrInsufficientHistory), errors.Is(err, models.ErrOutcomeAlreadySet):
		return itemSkipped(key, err)
	default:
		return itemFailed(key, err)
	}
}

// recovered turns a panic in one item into a failed result. Store invariant
// violations are re-raised so strict builds still fail fast.
func recovered(key string, r any) ItemResult {
	if isCorruption(r) {
		panic(r)
	}
	return itemFailed(key, fmt.Errorf("panic: %v", r))
}

func isCorruption(r any) bool {
	err, ok := r.(error)
	return ok && errors.Is(err, models.ErrCorruptRecord)
}

// fanOut runs fn for every asset concurrently, bounded by the cycle timeout,
// and returns results in asset order.
func fanOut(ctx context.Context, assets []models.Asset, timeout time.Duration, fn func(context.Context, models.Asset) ItemResult) []ItemResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type item struct {
		idx int
		res ItemResult
	}
	ch := make(chan item, len(assets))
	var wg sync.WaitGroup

	for i, a := range assets {
		wg.Add(1)
		go func(i int, a models.Asset) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					ch <- item{i, recovered(a.Symbol, r)}
				}
			}()
			ch <- item{i, fn(ctx, a)}
		}(i, a)
	}

	go func() { wg.Wait(); close(ch) }()

	out := make([]ItemResult, len(assets))
	for it := range ch {
		out[it.idx] = it.res
	}
	return out
}
