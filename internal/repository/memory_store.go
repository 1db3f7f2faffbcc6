package repository

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
)

// MemoryStore is the in-process TimeSeriesStore. Each collection has its own
// lock so ingest, indicator, prediction and validation tasks only contend on
// the collection they write.
type MemoryStore struct {
	assetsMu    sync.RWMutex
	assets      map[int64]models.Asset
	assetOrder  []int64
	bySymbol    map[string]int64
	nextAssetID int64

	barsMu    sync.RWMutex
	bars      map[int64][]models.Bar
	nextBarID int64

	snapsMu    sync.RWMutex
	snaps      map[int64][]models.IndicatorSnapshot
	nextSnapID int64

	predsMu     sync.RWMutex
	preds       map[int64]*models.Prediction
	predOrder   []int64           // all predictions, oldest first
	predByAsset map[int64][]int64 // per asset, oldest first
	nextPredID  int64

	strict    bool
	retention int
	now       func() time.Time
	logger    *applogger.Logger
}

var _ domrepo.TimeSeriesStore = (*MemoryStore)(nil)

type StoreOption func(*MemoryStore)

// WithStrict makes invariant violations panic instead of skipping the record.
// Debug builds default to strict.
func WithStrict(strict bool) StoreOption {
	return func(s *MemoryStore) { s.strict = strict }
}

// WithRetention caps bars and snapshots kept per asset. Zero keeps everything.
func WithRetention(n int) StoreOption {
	return func(s *MemoryStore) {
		if n >= 0 {
			s.retention = n
		}
	}
}

func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func WithStoreLogger(l *applogger.Logger) StoreOption {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		assets:      make(map[int64]models.Asset),
		bySymbol:    make(map[string]int64),
		bars:        make(map[int64][]models.Bar),
		snaps:       make(map[int64][]models.IndicatorSnapshot),
		preds:       make(map[int64]*models.Prediction),
		predByAsset: make(map[int64][]int64),
		strict:      strictDefault,
		now:         time.Now,
		logger:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- assets ---

func (s *MemoryStore) AddAsset(a models.Asset) (models.Asset, error) {
	sym := strings.ToUpper(strings.TrimSpace(a.Symbol))
	if sym == "" || !a.Class.Valid() {
		return models.Asset{}, s.corrupt("asset", fmt.Sprintf("symbol=%q class=%q", a.Symbol, a.Class))
	}

	s.assetsMu.Lock()
	defer s.assetsMu.Unlock()

	if _, dup := s.bySymbol[sym]; dup {
		return models.Asset{}, fmt.Errorf("asset %s already exists", sym)
	}
	s.nextAssetID++
	a.ID = s.nextAssetID
	a.Symbol = sym
	s.assets[a.ID] = a
	s.assetOrder = append(s.assetOrder, a.ID)
	s.bySymbol[sym] = a.ID
	return a, nil
}

// Assets returns active assets in creation order.
func (s *MemoryStore) Assets() []models.Asset {
	s.assetsMu.RLock()
	defer s.assetsMu.RUnlock()

	out := make([]models.Asset, 0, len(s.assetOrder))
	for _, id := range s.assetOrder {
		if a := s.assets[id]; a.Active {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemoryStore) Asset(id int64) (models.Asset, error) {
	s.assetsMu.RLock()
	defer s.assetsMu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return models.Asset{}, fmt.Errorf("asset %d: %w", id, models.ErrUnknownAsset)
	}
	return a, nil
}

func (s *MemoryStore) AssetBySymbol(symbol string) (models.Asset, error) {
	s.assetsMu.RLock()
	defer s.assetsMu.RUnlock()

	id, ok := s.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return models.Asset{}, fmt.Errorf("asset %s: %w", symbol, models.ErrUnknownAsset)
	}
	return s.assets[id], nil
}

func (s *MemoryStore) requireAsset(id int64) error {
	_, err := s.Asset(id)
	return err
}

// --- bars ---

func (s *MemoryStore) AppendBar(b models.Bar) (int64, error) {
	if err := s.requireAsset(b.AssetID); err != nil {
		return 0, err
	}
	if !b.Valid() || b.Timestamp.IsZero() {
		return 0, s.corrupt("bar", fmt.Sprintf("asset=%d o=%v h=%v l=%v c=%v v=%d", b.AssetID, b.Open, b.High, b.Low, b.Close, b.Volume))
	}

	s.barsMu.Lock()
	defer s.barsMu.Unlock()

	s.nextBarID++
	b.ID = s.nextBarID
	series := s.bars[b.AssetID]
	i := sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(b.Timestamp) })
	series = append(series, models.Bar{})
	copy(series[i+1:], series[i:])
	series[i] = b
	s.bars[b.AssetID] = trimFront(series, s.retention)
	return b.ID, nil
}

// LatestBar returns the newest bar, or nil when the asset has none yet.
func (s *MemoryStore) LatestBar(assetID int64) (*models.Bar, error) {
	if err := s.requireAsset(assetID); err != nil {
		return nil, err
	}

	s.barsMu.RLock()
	defer s.barsMu.RUnlock()

	series := s.bars[assetID]
	if len(series) == 0 {
		return nil, nil
	}
	b := series[len(series)-1]
	return &b, nil
}

// BarHistory returns up to limit bars, newest first.
func (s *MemoryStore) BarHistory(assetID int64, limit int) ([]models.Bar, error) {
	if err := s.requireAsset(assetID); err != nil {
		return nil, err
	}

	s.barsMu.RLock()
	defer s.barsMu.RUnlock()

	series := s.bars[assetID]
	n := len(series)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = series[len(series)-1-i]
	}
	return out, nil
}

// --- indicator snapshots ---

func (s *MemoryStore) AppendIndicatorSnapshot(snap models.IndicatorSnapshot) (int64, error) {
	if err := s.requireAsset(snap.AssetID); err != nil {
		return 0, err
	}
	if snap.Timestamp.IsZero() {
		return 0, s.corrupt("indicator snapshot", fmt.Sprintf("asset=%d missing timestamp", snap.AssetID))
	}

	s.snapsMu.Lock()
	defer s.snapsMu.Unlock()

	s.nextSnapID++
	snap = snap.Clone()
	snap.ID = s.nextSnapID
	series := s.snaps[snap.AssetID]
	i := sort.Search(len(series), func(i int) bool { return series[i].Timestamp.After(snap.Timestamp) })
	series = append(series, models.IndicatorSnapshot{})
	copy(series[i+1:], series[i:])
	series[i] = snap
	s.snaps[snap.AssetID] = trimFront(series, s.retention)
	return snap.ID, nil
}

func (s *MemoryStore) LatestIndicatorSnapshot(assetID int64) (*models.IndicatorSnapshot, error) {
	if err := s.requireAsset(assetID); err != nil {
		return nil, err
	}

	s.snapsMu.RLock()
	defer s.snapsMu.RUnlock()

	series := s.snaps[assetID]
	if len(series) == 0 {
		return nil, nil
	}
	snap := series[len(series)-1].Clone()
	return &snap, nil
}

// --- predictions ---

func (s *MemoryStore) AppendPrediction(p models.Prediction) (int64, error) {
	if err := s.requireAsset(p.AssetID); err != nil {
		return 0, err
	}
	if p.Outcome == "" {
		p.Outcome = models.OutcomePending
	}
	if !p.Valid() || p.Timestamp.IsZero() {
		return 0, s.corrupt("prediction", fmt.Sprintf("asset=%d direction=%q confidence=%v outcome=%q", p.AssetID, p.Direction, p.Confidence, p.Outcome))
	}

	s.predsMu.Lock()
	defer s.predsMu.Unlock()

	s.nextPredID++
	p = p.Clone()
	p.ID = s.nextPredID
	s.preds[p.ID] = &p
	s.predOrder = s.insertPredID(s.predOrder, p)
	s.predByAsset[p.AssetID] = s.insertPredID(s.predByAsset[p.AssetID], p)
	return p.ID, nil
}

// insertPredID keeps ids ordered by (timestamp, id). Must hold predsMu.
func (s *MemoryStore) insertPredID(ids []int64, p models.Prediction) []int64 {
	i := sort.Search(len(ids), func(i int) bool { return s.preds[ids[i]].Timestamp.After(p.Timestamp) })
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = p.ID
	return ids
}

func (s *MemoryStore) LatestPrediction(assetID int64) (*models.Prediction, error) {
	if err := s.requireAsset(assetID); err != nil {
		return nil, err
	}

	s.predsMu.RLock()
	defer s.predsMu.RUnlock()

	ids := s.predByAsset[assetID]
	if len(ids) == 0 {
		return nil, nil
	}
	p := s.preds[ids[len(ids)-1]].Clone()
	return &p, nil
}

// RecentPredictions returns up to limit predictions across all assets, newest first.
func (s *MemoryStore) RecentPredictions(limit int) []models.Prediction {
	s.predsMu.RLock()
	defer s.predsMu.RUnlock()

	n := len(s.predOrder)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]models.Prediction, n)
	for i := 0; i < n; i++ {
		out[i] = s.preds[s.predOrder[len(s.predOrder)-1-i]].Clone()
	}
	return out
}

// SetPredictionOutcome resolves a pending prediction. Resolving one that is
// already resolved returns the stored prediction with ErrOutcomeAlreadySet and
// leaves it untouched.
func (s *MemoryStore) SetPredictionOutcome(id int64, outcome models.Outcome) (models.Prediction, error) {
	if !outcome.Resolved() {
		return models.Prediction{}, fmt.Errorf("prediction %d: outcome %q is not terminal", id, outcome)
	}

	s.predsMu.Lock()
	defer s.predsMu.Unlock()

	p, ok := s.preds[id]
	if !ok {
		return models.Prediction{}, fmt.Errorf("prediction %d: %w", id, models.ErrPredictionNotFound)
	}
	if p.Outcome.Resolved() {
		return p.Clone(), fmt.Errorf("prediction %d is %s: %w", id, p.Outcome, models.ErrOutcomeAlreadySet)
	}
	at := s.now()
	p.Outcome = outcome
	p.ResolvedAt = &at
	return p.Clone(), nil
}

// corrupt handles an invariant violation: panic when strict, otherwise log
// and report the record as skipped.
func (s *MemoryStore) corrupt(kind, detail string) error {
	if s.strict {
		panic(fmt.Errorf("store invariant violated: %s %s: %w", kind, detail, models.ErrCorruptRecord))
	}
	s.logger.Warn("store: skipping corrupt record",
		applogger.String("kind", kind),
		applogger.String("detail", detail),
	)
	return fmt.Errorf("%s %s: %w", kind, detail, models.ErrCorruptRecord)
}

func trimFront[T any](series []T, keep int) []T {
	if keep <= 0 || len(series) <= keep {
		return series
	}
	drop := len(series) - keep
	out := make([]T, keep)
	copy(out, series[drop:])
	return out
}
