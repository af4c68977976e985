// Package render formats the messages sent to users
package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/raykavin/pricewatch/pkg/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const unavailable = "Unable to fetch"

// Printer renders prices and notifications in a single quote currency
type Printer struct {
	printer  *message.Printer
	currency string
}

// New creates a Printer for the given quote currency, e.g. "usd"
func New(currency string) *Printer {
	return &Printer{
		printer:  message.NewPrinter(language.English),
		currency: strings.ToUpper(currency),
	}
}

// Money formats a price with thousands separators and two decimals
func (p *Printer) Money(value float64) string {
	switch p.currency {
	case "", "USD", "USDT":
		return p.printer.Sprintf("$%.2f", value)
	default:
		return p.printer.Sprintf("%.2f %s", value, p.currency)
	}
}

// Percent formats a percentage magnitude
func (p *Printer) Percent(value float64) string {
	return p.printer.Sprintf("%.2f%%", value)
}

// Alert is the message sent for a fired threshold
func (p *Printer) Alert(assetID string, change core.Change, initial, current float64) string {
	return fmt.Sprintf(
		"🚨 Alert for %s!\nPrice has %s by %s\nInitial price: %s\nCurrent price: %s",
		assetID, change.Direction, p.Percent(change.Abs), p.Money(initial), p.Money(current),
	)
}

// CoalescedAlert reports several fired thresholds of one asset in a single message
func (p *Printer) CoalescedAlert(assetID string, change core.Change, initial, current float64,
	fired core.Thresholds) string {
	return fmt.Sprintf("%s\nThresholds reached: %s%%", p.Alert(assetID, change, initial, current), fired)
}

// Completed is sent once the last threshold of a record fired
func (p *Printer) Completed(assetID string) string {
	return fmt.Sprintf("All alerts completed for %s. Tracking stopped.", assetID)
}

// TrackingStarted confirms a new record
func (p *Printer) TrackingStarted(record core.TrackingRecord) string {
	return fmt.Sprintf(
		"Now tracking %s!\nInitial price: %s\nYou will receive alerts at these percentage changes: %s%%",
		record.AssetID, p.Money(record.InitialPrice), record.Pending,
	)
}

// AlreadyTracking explains why a duplicate track request was refused
func (p *Printer) AlreadyTracking(record core.TrackingRecord) string {
	return fmt.Sprintf(
		"You are already tracking %s.\nInitial price: %s\nRemaining alerts at: %s%%\nUse /remove %s to start over.",
		record.AssetID, p.Money(record.InitialPrice), record.Pending, record.AssetID,
	)
}

// UnknownAsset is sent when the initial price lookup failed
func (p *Printer) UnknownAsset(assetID string) string {
	return fmt.Sprintf("Could not find cryptocurrency with ID: %s", assetID)
}

// Usage explains how to call a command that needs an asset id
func (p *Printer) Usage(command string) string {
	return fmt.Sprintf("Please provide a cryptocurrency ID.\nExample: /%s bitcoin", command)
}

// Stopped confirms a removal
func (p *Printer) Stopped(assetID string) string {
	return fmt.Sprintf("Stopped tracking %s", assetID)
}

// NotTracking answers a removal of an unknown record
func (p *Printer) NotTracking(assetID string) string {
	return fmt.Sprintf("You are not tracking %s", assetID)
}

// NoAlerts answers a list request of a user without records
func (p *Printer) NoAlerts() string {
	return "You have no active alerts."
}

// Help lists the available commands
func (p *Printer) Help() string {
	return strings.Join([]string{
		"Welcome to the Crypto Price Alert Bot! 🚀",
		"",
		"Commands:",
		"/track <crypto_id> - Start tracking a cryptocurrency",
		"/alerts - View your active alerts",
		"/remove <crypto_id> - Stop tracking a cryptocurrency",
		"/help - Show this help message",
		"",
		"Example: /track bitcoin",
	}, "\n")
}

// Row is one line of the active alerts listing
type Row struct {
	Record    core.TrackingRecord
	Current   float64
	Available bool
}

// List renders the user's records as an HTML message with a monospaced table
func (p *Printer) List(rows []Row) string {
	if len(rows) == 0 {
		return p.NoAlerts()
	}

	var buffer bytes.Buffer
	table := tablewriter.NewWriter(&buffer)
	table.SetHeader([]string{"Asset", "Initial", "Current", "Change"})
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var details strings.Builder
	for _, row := range rows {
		current, change := unavailable, "-"
		if row.Available {
			current = p.Money(row.Current)
			delta := core.ChangeFrom(row.Record.InitialPrice, row.Current)
			change = p.printer.Sprintf("%+.2f%%", delta.Percent)
		}

		table.Append([]string{
			strings.ToUpper(row.Record.AssetID),
			p.Money(row.Record.InitialPrice),
			current,
			change,
		})

		fmt.Fprintf(&details, "🪙 %s\nRemaining alerts at: %s%%\n",
			html.EscapeString(strings.ToUpper(row.Record.AssetID)), row.Record.Pending)
	}
	table.Render()

	return fmt.Sprintf("Your active alerts:\n\n<pre>%s</pre>\n%s",
		html.EscapeString(buffer.String()), details.String())
}
