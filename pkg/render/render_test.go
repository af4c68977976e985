package render

import (
	"testing"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/stretchr/testify/require"
)

func TestPrinter_Money(t *testing.T) {
	require.Equal(t, "$64,250.50", New("usd").Money(64250.5))
	require.Equal(t, "$0.07", New("usd").Money(0.0712))
	require.Equal(t, "3,100.00 EUR", New("eur").Money(3100))
}

func TestPrinter_Alert(t *testing.T) {
	p := New("usd")
	msg := p.Alert("bitcoin", core.ChangeFrom(100, 106), 100, 106)
	require.Equal(t, "🚨 Alert for bitcoin!\nPrice has increased by 6.00%\nInitial price: $100.00\nCurrent price: $106.00", msg)

	msg = p.CoalescedAlert("bitcoin", core.ChangeFrom(100, 80), 100, 80, core.Thresholds{5, 10, 15, 20})
	require.Contains(t, msg, "Price has decreased by 20.00%")
	require.Contains(t, msg, "Thresholds reached: 5, 10, 15, 20%")
}

func TestPrinter_TrackingStarted(t *testing.T) {
	msg := New("usd").TrackingStarted(core.TrackingRecord{
		AssetID:      "bitcoin",
		InitialPrice: 1234.5,
		Pending:      core.Thresholds{5, 10},
	})
	require.Equal(t, "Now tracking bitcoin!\nInitial price: $1,234.50\nYou will receive alerts at these percentage changes: 5, 10%", msg)
}

func TestPrinter_List(t *testing.T) {
	p := New("usd")
	require.Equal(t, p.NoAlerts(), p.List(nil))

	msg := p.List([]Row{
		{Record: core.TrackingRecord{AssetID: "bitcoin", InitialPrice: 100, Pending: core.Thresholds{10, 15}}, Current: 106, Available: true},
		{Record: core.TrackingRecord{AssetID: "ethereum", InitialPrice: 10, Pending: core.Thresholds{5}}},
	})
	require.Contains(t, msg, "<pre>")
	require.Contains(t, msg, "BITCOIN")
	require.Contains(t, msg, "+6.00%")
	require.Contains(t, msg, unavailable)
	require.Contains(t, msg, "Remaining alerts at: 10, 15%")
	require.Contains(t, msg, "🪙 ETHEREUM\nRemaining alerts at: 5%")
}

func TestPrinter_Help(t *testing.T) {
	require.Contains(t, New("usd").Help(), "/track <crypto_id>")
}
