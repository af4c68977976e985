package reconcile

import "time"

type entryStatus int

const (
	statusSkipped entryStatus = iota
	statusUnchanged
	statusUpdated
	statusRetired
	statusMissing
	statusFailed
)

type entryResult struct {
	status   entryStatus
	sent     int
	failures int
}

func (r *entryResult) count(sent bool) {
	if sent {
		r.sent++
	} else {
		r.failures++
	}
}

// PassReport summarises one reconciliation pass
type PassReport struct {
	ID       string
	Entries  int // records in the snapshot
	Assets   int // distinct assets looked up
	Skipped  int // entries without a price this pass
	Updated  int // records that lost some thresholds
	Retired  int // records deleted because every threshold fired
	Missing  int // records removed by the user during the pass
	Failed   int // entries whose result could not be applied
	Sent     int // notifications delivered
	Unsent   int // notifications that failed
	Duration time.Duration
}

func (r *PassReport) add(result entryResult) {
	switch result.status {
	case statusSkipped:
		r.Skipped++
	case statusUpdated:
		r.Updated++
	case statusRetired:
		r.Retired++
	case statusMissing:
		r.Missing++
	case statusFailed:
		r.Failed++
	}

	r.Sent += result.sent
	r.Unsent += result.failures
}

func (r PassReport) fields() map[string]any {
	return map[string]any{
		"entries":  r.Entries,
		"assets":   r.Assets,
		"skipped":  r.Skipped,
		"updated":  r.Updated,
		"retired":  r.Retired,
		"missing":  r.Missing,
		"failed":   r.Failed,
		"sent":     r.Sent,
		"unsent":   r.Unsent,
		"duration": r.Duration.String(),
	}
}
