package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger/zerolog"
	"github.com/raykavin/pricewatch/pkg/render"
	"github.com/raykavin/pricewatch/pkg/storage"
	"github.com/raykavin/pricewatch/pkg/tracker"
	"github.com/stretchr/testify/require"
)

// fakeSource answers from a fixed price table
type fakeSource struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
	hook   func(assetID string)
}

func newFakeSource(prices map[string]float64) *fakeSource {
	return &fakeSource{prices: prices, calls: make(map[string]int)}
}

func (f *fakeSource) Price(_ context.Context, assetID string) (float64, error) {
	if f.hook != nil {
		f.hook(assetID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[assetID]++
	price, ok := f.prices[assetID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrPriceUnavailable, assetID)
	}
	return price, nil
}

func (f *fakeSource) set(assetID string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[assetID] = price
}

type message struct {
	user int64
	text string
}

// fakeNotifier records every message and fails for selected users
type fakeNotifier struct {
	mu       sync.Mutex
	messages []message
	failFor  map[int64]bool
}

func (f *fakeNotifier) Notify(_ context.Context, userID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFor[userID] {
		return core.ErrNotificationFailed
	}
	f.messages = append(f.messages, message{user: userID, text: text})
	return nil
}

func (f *fakeNotifier) to(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var texts []string
	for _, m := range f.messages {
		if m.user == userID {
			texts = append(texts, m.text)
		}
	}
	return texts
}

func newEngine(store core.Store, source core.PriceSource, notifier core.Notifier, options ...Option) *Engine {
	return NewEngine(store, source, notifier, zerolog.Nop(), options...)
}

func stores(t *testing.T) map[string]func() core.Store {
	return map[string]func() core.Store{
		"memory": func() core.Store { return tracker.NewMemoryStore() },
		"buntdb": func() core.Store {
			store, err := storage.FromMemory()
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

func TestEngine_SingleThresholdFires(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := build()
			_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
			require.NoError(t, err)

			notifier := &fakeNotifier{}
			report := newEngine(store, newFakeSource(map[string]float64{"bitcoin": 106}), notifier).Pass(context.Background())

			require.Equal(t, 1, report.Updated)
			require.Equal(t, 1, report.Sent)

			record, ok := store.Get(1, "bitcoin")
			require.True(t, ok)
			require.Equal(t, core.StepThresholds(5, 100)[1:], record.Pending)
			require.Equal(t, 100.0, record.InitialPrice)

			texts := notifier.to(1)
			require.Len(t, texts, 1)
			require.Equal(t, render.New("usd").Alert("bitcoin", core.ChangeFrom(100, 106), 100, 106), texts[0])
		})
	}
}

func TestEngine_AllThresholdsFireAndRetire(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := build()
			_, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10, 15, 20})
			require.NoError(t, err)

			notifier := &fakeNotifier{}
			report := newEngine(store, newFakeSource(map[string]float64{"bitcoin": 80}), notifier).Pass(context.Background())

			require.Equal(t, 1, report.Retired)
			_, ok := store.Get(1, "bitcoin")
			require.False(t, ok)
			require.Zero(t, store.Len())

			texts := notifier.to(1)
			require.Len(t, texts, 5)
			for _, text := range texts[:4] {
				require.Contains(t, text, "Price has decreased by 20.00%")
			}
			require.Equal(t, "All alerts completed for bitcoin. Tracking stopped.", texts[4])
		})
	}
}

func TestEngine_Coalesce(t *testing.T) {
	store := tracker.NewMemoryStore()
	_, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10, 15, 20, 25})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	engine := newEngine(store, newFakeSource(map[string]float64{"bitcoin": 117}), notifier, WithCoalesce(true))
	engine.Pass(context.Background())

	texts := notifier.to(1)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Thresholds reached: 5, 10, 15%")

	record, ok := store.Get(1, "bitcoin")
	require.True(t, ok)
	require.Equal(t, core.Thresholds{20, 25}, record.Pending)
}

func TestEngine_NothingFires(t *testing.T) {
	store := tracker.NewMemoryStore()
	_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	report := newEngine(store, newFakeSource(map[string]float64{"bitcoin": 103}), notifier).Pass(context.Background())

	require.Zero(t, report.Updated)
	require.Empty(t, notifier.to(1))
	record, _ := store.Get(1, "bitcoin")
	require.Equal(t, core.DefaultThresholds(), record.Pending)
}

func TestEngine_UnavailablePriceIsolated(t *testing.T) {
	store := tracker.NewMemoryStore()
	for _, asset := range []string{"bitcoin", "delisted", "ethereum"} {
		_, err := store.Create(1, asset, 100, core.DefaultThresholds())
		require.NoError(t, err)
	}

	source := newFakeSource(map[string]float64{"bitcoin": 110, "ethereum": 90})
	notifier := &fakeNotifier{}
	report := newEngine(store, source, notifier).Pass(context.Background())

	require.Equal(t, 3, report.Entries)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 2, report.Updated)

	delisted, ok := store.Get(1, "delisted")
	require.True(t, ok)
	require.Equal(t, core.DefaultThresholds(), delisted.Pending)

	for _, asset := range []string{"bitcoin", "ethereum"} {
		record, ok := store.Get(1, asset)
		require.True(t, ok)
		require.Equal(t, core.StepThresholds(5, 100)[2:], record.Pending)
	}
	require.Len(t, notifier.to(1), 4)
}

func TestEngine_NotifierFailureIsolated(t *testing.T) {
	store := tracker.NewMemoryStore()
	for user := int64(1); user <= 3; user++ {
		_, err := store.Create(user, "bitcoin", 100, core.Thresholds{5, 10})
		require.NoError(t, err)
	}

	notifier := &fakeNotifier{failFor: map[int64]bool{2: true}}
	report := newEngine(store, newFakeSource(map[string]float64{"bitcoin": 106}), notifier).Pass(context.Background())

	require.Equal(t, 3, report.Updated)
	require.Equal(t, 2, report.Sent)
	require.Equal(t, 1, report.Unsent)
	require.Len(t, notifier.to(1), 1)
	require.Len(t, notifier.to(3), 1)

	// a failed delivery does not roll back the threshold
	record, ok := store.Get(2, "bitcoin")
	require.True(t, ok)
	require.Equal(t, core.Thresholds{10}, record.Pending)
}

func TestEngine_RemovalDuringPassWins(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := build()
			_, err := store.Create(1, "bitcoin", 100, core.Thresholds{5, 10})
			require.NoError(t, err)

			source := newFakeSource(map[string]float64{"bitcoin": 150})
			source.hook = func(assetID string) {
				// the user removes the tracker while the pass is waiting on the provider
				store.Remove(1, assetID)
			}

			notifier := &fakeNotifier{}
			report := newEngine(store, source, notifier).Pass(context.Background())

			require.Equal(t, 1, report.Missing)
			_, ok := store.Get(1, "bitcoin")
			require.False(t, ok)
			require.Zero(t, store.Len())
			require.Empty(t, notifier.to(1))
		})
	}
}

func TestEngine_RetrackDuringPassKeepsNewRecord(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := build()
			_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
			require.NoError(t, err)

			var fresh core.TrackingRecord
			source := newFakeSource(map[string]float64{"bitcoin": 106})
			source.hook = func(assetID string) {
				// the user removes and re-tracks the asset while the pass waits on the provider
				store.Remove(1, assetID)
				fresh, err = store.Create(1, assetID, 106, core.DefaultThresholds())
			}

			notifier := &fakeNotifier{}
			report := newEngine(store, source, notifier).Pass(context.Background())
			require.NoError(t, err)

			require.Equal(t, 1, report.Missing)
			require.Empty(t, notifier.to(1))

			record, ok := store.Get(1, "bitcoin")
			require.True(t, ok)
			require.Equal(t, fresh.ID, record.ID)
			require.Equal(t, 106.0, record.InitialPrice)
			require.Equal(t, core.DefaultThresholds(), record.Pending)
		})
	}
}

func TestEngine_SharedAssetFetchedOnce(t *testing.T) {
	store := tracker.NewMemoryStore()
	for user := int64(1); user <= 5; user++ {
		_, err := store.Create(user, "bitcoin", 100, core.DefaultThresholds())
		require.NoError(t, err)
	}

	source := newFakeSource(map[string]float64{"bitcoin": 100})
	report := newEngine(store, source, &fakeNotifier{}, WithConcurrency(2)).Pass(context.Background())

	require.Equal(t, 5, report.Entries)
	require.Equal(t, 1, report.Assets)
	require.Equal(t, 1, source.calls["bitcoin"])
}

func TestEngine_SuccessivePassesShrinkPending(t *testing.T) {
	store := tracker.NewMemoryStore()
	_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	source := newFakeSource(map[string]float64{})
	notifier := &fakeNotifier{}
	engine := newEngine(store, source, notifier)

	previous := core.DefaultThresholds()
	for _, price := range []float64{104, 111, 95, 131, 131, 60, 250} {
		source.set("bitcoin", price)
		engine.Pass(context.Background())

		record, ok := store.Get(1, "bitcoin")
		if !ok {
			break
		}
		require.True(t, record.Pending.SubsetOf(previous))
		require.NotEmpty(t, record.Pending)
		require.Equal(t, 100.0, record.InitialPrice)
		previous = record.Pending
	}

	_, ok := store.Get(1, "bitcoin")
	require.False(t, ok)
	texts := notifier.to(1)
	require.Equal(t, "All alerts completed for bitcoin. Tracking stopped.", texts[len(texts)-1])
	require.Len(t, texts, 21)
}

func TestEngine_EmptyStore(t *testing.T) {
	source := newFakeSource(map[string]float64{})
	report := newEngine(tracker.NewMemoryStore(), source, &fakeNotifier{}).Pass(context.Background())
	require.Zero(t, report.Entries)
	require.Empty(t, source.calls)
}

type growingStore struct {
	*tracker.MemoryStore
}

func (g growingStore) ApplyThresholdResult(int64, string, string, core.Thresholds, core.Thresholds) (core.Outcome, error) {
	return core.OutcomeMissing, core.ErrThresholdGrowth
}

func TestEngine_StoreErrorIsContained(t *testing.T) {
	store := growingStore{tracker.NewMemoryStore()}
	_, err := store.Create(1, "bitcoin", 100, core.DefaultThresholds())
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	report := newEngine(store, newFakeSource(map[string]float64{"bitcoin": 200}), notifier).Pass(context.Background())
	require.Equal(t, 1, report.Failed)
	require.Empty(t, notifier.to(1))
}

// blockingSource holds every lookup until released
type blockingSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSource) Price(ctx context.Context, _ string) (float64, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return 150, nil
	case <-ctx.Done():
		return 0, errors.Join(core.ErrPriceUnavailable, ctx.Err())
	}
}

func TestEngine_StopWaitsForInflightPass(t *testing.T) {
	store := tracker.NewMemoryStore()
	_, err := store.Create(1, "bitcoin", 100, core.Thresholds{5})
	require.NoError(t, err)

	source := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	notifier := &fakeNotifier{}
	engine := newEngine(store, source, notifier, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, engine.Start(ctx))
	require.ErrorIs(t, engine.Start(ctx), ErrAlreadyRunning)

	<-source.started
	cancel()
	stopped := engine.Stop()

	select {
	case <-stopped.Done():
		t.Fatal("stop returned before the in-flight pass finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(source.release)
	select {
	case <-stopped.Done():
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}

	// the pass completed normally even though the parent context was canceled
	_, ok := store.Get(1, "bitcoin")
	require.False(t, ok)
	require.Len(t, notifier.to(1), 2)
}

func TestEngine_StopWithoutStart(t *testing.T) {
	engine := newEngine(tracker.NewMemoryStore(), newFakeSource(nil), &fakeNotifier{})
	<-engine.Stop().Done()
}

func TestEngine_Options(t *testing.T) {
	engine := newEngine(tracker.NewMemoryStore(), newFakeSource(nil), &fakeNotifier{},
		WithInterval(10*time.Millisecond), WithConcurrency(0), WithPriceTimeout(time.Second))
	require.Equal(t, time.Second, engine.Interval())
	require.Equal(t, DefaultConcurrency, engine.concurrency)
	require.Equal(t, time.Second, engine.priceTimeout)
}
