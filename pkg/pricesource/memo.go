package pricesource

import (
	"context"
	"fmt"

	"github.com/raykavin/pricewatch/pkg/core"
	"golang.org/x/sync/singleflight"
)

// Memo collapses concurrent lookups of the same asset into one provider call.
// Results are not cached once the call returns.
//
// The shared call runs with the context of the caller that started it. Every caller
// still waits only as long as its own ctx allows and gets ErrPriceUnavailable when it expires.
type Memo struct {
	source core.PriceSource
	group  singleflight.Group
}

// NewMemo wraps source
func NewMemo(source core.PriceSource) *Memo {
	return &Memo{source: source}
}

// Price implements core.PriceSource
func (m *Memo) Price(ctx context.Context, assetID string) (float64, error) {
	results := m.group.DoChan(assetID, func() (any, error) {
		return m.source.Price(ctx, assetID)
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return 0, result.Err
		}
		return result.Val.(float64), nil
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %s: %w", core.ErrPriceUnavailable, assetID, ctx.Err())
	}
}
