package pricesource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingSource) Price(_ context.Context, assetID string) (float64, error) {
	b.calls.Add(1)
	<-b.release
	if assetID == "broken" {
		return 0, core.ErrPriceUnavailable
	}
	return 42, nil
}

func TestMemo_SharesInFlightCalls(t *testing.T) {
	source := &blockingSource{release: make(chan struct{})}
	memo := NewMemo(source)

	var wg sync.WaitGroup
	prices := make([]float64, 10)
	for i := range prices {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			price, err := memo.Price(context.Background(), "bitcoin")
			assert.NoError(t, err)
			prices[i] = price
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	require.Equal(t, int32(1), source.calls.Load())
	for _, price := range prices {
		require.Equal(t, 42.0, price)
	}
}

func TestMemo_PropagatesErrors(t *testing.T) {
	source := &blockingSource{release: make(chan struct{})}
	close(source.release)

	_, err := NewMemo(source).Price(context.Background(), "broken")
	require.True(t, errors.Is(err, core.ErrPriceUnavailable))
}

func TestMemo_JoinedCallerKeepsOwnDeadline(t *testing.T) {
	source := &blockingSource{release: make(chan struct{})}
	memo := NewMemo(source)

	first := make(chan error, 1)
	go func() {
		_, err := memo.Price(context.Background(), "bitcoin")
		first <- err
	}()

	require.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := memo.Price(ctx, "bitcoin")
	require.ErrorIs(t, err, core.ErrPriceUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(source.release)
	require.NoError(t, <-first)
	require.Equal(t, int32(1), source.calls.Load())
}
