// Package reconcile runs the periodic reconciliation of tracking records against current prices
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/StudioSol/set"
	"github.com/google/uuid"
	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/raykavin/pricewatch/pkg/render"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval      = 60 * time.Second
	DefaultConcurrency   = 4
	DefaultPriceTimeout  = 10 * time.Second
	DefaultNotifyTimeout = 10 * time.Second
)

var ErrAlreadyRunning = errors.New("engine already running")

// Engine evaluates every active record against the price source once per interval
type Engine struct {
	store    core.Store
	source   core.PriceSource
	notifier core.Notifier
	printer  *render.Printer
	log      logger.Logger

	interval      time.Duration
	concurrency   int
	priceTimeout  time.Duration
	notifyTimeout time.Duration
	coalesce      bool

	mu        sync.Mutex
	scheduler *cron.Cron
	inflight  sync.WaitGroup
}

// Option configures an Engine
type Option func(*Engine)

// WithInterval sets the time between passes. Values under one second are raised to one second.
func WithInterval(interval time.Duration) Option {
	return func(e *Engine) {
		e.interval = max(interval, time.Second)
	}
}

// WithConcurrency caps the number of simultaneous price lookups and entry evaluations
func WithConcurrency(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.concurrency = limit
		}
	}
}

// WithPriceTimeout bounds every price lookup
func WithPriceTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.priceTimeout = timeout
		}
	}
}

// WithNotifyTimeout bounds every notification
func WithNotifyTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.notifyTimeout = timeout
		}
	}
}

// WithCoalesce sends one message per asset listing every fired threshold
// instead of one message per fired threshold
func WithCoalesce(coalesce bool) Option {
	return func(e *Engine) {
		e.coalesce = coalesce
	}
}

// WithPrinter sets the message renderer
func WithPrinter(printer *render.Printer) Option {
	return func(e *Engine) {
		e.printer = printer
	}
}

// NewEngine creates a reconciliation engine
func NewEngine(store core.Store, source core.PriceSource, notifier core.Notifier,
	log logger.Logger, options ...Option) *Engine {

	engine := &Engine{
		store:         store,
		source:        source,
		notifier:      notifier,
		log:           log,
		printer:       render.New("usd"),
		interval:      DefaultInterval,
		concurrency:   DefaultConcurrency,
		priceTimeout:  DefaultPriceTimeout,
		notifyTimeout: DefaultNotifyTimeout,
	}

	for _, option := range options {
		option(engine)
	}

	return engine
}

// Interval returns the time between passes
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Start runs a first pass right away and then one pass per interval.
// Passes never overlap and do not observe the cancellation of ctx, so Stop lets
// an in-flight pass finish.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scheduler != nil {
		return ErrAlreadyRunning
	}

	passCtx := context.WithoutCancel(ctx)
	cronLog := cronLogger{e.log}
	job := cron.NewChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)).
		Then(cron.FuncJob(func() {
			e.Pass(passCtx)
		}))

	e.scheduler = cron.New(cron.WithLogger(cronLog))
	e.scheduler.Schedule(cron.Every(e.interval), job)
	e.scheduler.Start()

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		job.Run()
	}()

	e.log.WithField("interval", e.interval.String()).Info("reconciliation engine started")
	return nil
}

// Stop cancels future passes. The returned context is done once the in-flight pass, if any, completed.
func (e *Engine) Stop() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	if e.scheduler == nil {
		cancel()
		return ctx
	}

	scheduled := e.scheduler.Stop()
	e.scheduler = nil

	go func() {
		<-scheduled.Done()
		e.inflight.Wait()
		e.log.Info("reconciliation engine stopped")
		cancel()
	}()

	return ctx
}

// Pass runs a single reconciliation pass over a snapshot of the store
func (e *Engine) Pass(ctx context.Context) PassReport {
	started := time.Now()
	snapshot := e.store.SnapshotAll()

	report := PassReport{ID: uuid.NewString(), Entries: len(snapshot)}
	log := e.log.WithField("pass_id", report.ID)

	if len(snapshot) == 0 {
		log.Trace("nothing to reconcile")
		return report
	}

	prices, assets := e.fetchPrices(ctx, snapshot, log)
	report.Assets = assets

	var mu sync.Mutex
	group := new(errgroup.Group)
	group.SetLimit(e.concurrency)

	for _, entry := range snapshot {
		group.Go(func() error {
			result := e.reconcile(ctx, entry, prices, log)

			mu.Lock()
			report.add(result)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	report.Duration = time.Since(started)
	log.WithFields(report.fields()).Debug("reconciliation pass finished")

	return report
}

// fetchPrices looks up every distinct asset of the snapshot once. Unavailable assets are absent from the result.
func (e *Engine) fetchPrices(ctx context.Context, snapshot []core.Entry, log logger.Logger) (map[string]float64, int) {
	assets := set.NewLinkedHashSetString()
	for _, entry := range snapshot {
		assets.Add(entry.AssetID)
	}

	var (
		mu       sync.Mutex
		distinct int
		prices   = make(map[string]float64)
	)

	group := new(errgroup.Group)
	group.SetLimit(e.concurrency)

	for assetID := range assets.Iter() {
		distinct++
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, e.priceTimeout)
			defer cancel()

			price, err := e.source.Price(callCtx, assetID)
			if err == nil && !(price > 0) {
				err = core.ErrPriceUnavailable
			}
			if err != nil {
				log.WithField("asset", assetID).WithError(err).Warn("price unavailable, skipping asset for this pass")
				return nil
			}

			mu.Lock()
			prices[assetID] = price
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	return prices, distinct
}

// reconcile evaluates one snapshot entry
func (e *Engine) reconcile(ctx context.Context, entry core.Entry, prices map[string]float64,
	log logger.Logger) entryResult {

	price, ok := prices[entry.AssetID]
	if !ok {
		return entryResult{status: statusSkipped}
	}

	record := entry.Record
	change := core.ChangeFrom(record.InitialPrice, price)
	fired, remaining := record.Pending.Partition(change.Abs)
	if len(fired) == 0 {
		return entryResult{status: statusUnchanged}
	}

	log = log.WithFields(map[string]any{
		"user":   entry.UserID,
		"asset":  entry.AssetID,
		"change": change.Percent,
		"fired":  fired.String(),
	})

	outcome, err := e.store.ApplyThresholdResult(entry.UserID, entry.AssetID, record.ID, fired, remaining)
	if err != nil {
		log.WithError(err).Error("failed to apply threshold result")
		return entryResult{status: statusFailed}
	}

	if outcome == core.OutcomeMissing {
		log.Debug("record removed or replaced during pass, dropping alerts")
		return entryResult{status: statusMissing}
	}

	result := entryResult{status: statusUpdated}
	if outcome == core.OutcomeRetired {
		result.status = statusRetired
	}

	for _, text := range e.alertMessages(entry.AssetID, change, record.InitialPrice, price, fired) {
		result.count(e.notify(ctx, log, entry.UserID, text))
	}

	if outcome == core.OutcomeRetired {
		result.count(e.notify(ctx, log, entry.UserID, e.printer.Completed(entry.AssetID)))
		log.Info("all thresholds fired, tracking stopped")
	} else {
		log.Info("thresholds fired")
	}

	return result
}

func (e *Engine) alertMessages(assetID string, change core.Change, initial, current float64,
	fired core.Thresholds) []string {

	if e.coalesce {
		return []string{e.printer.CoalescedAlert(assetID, change, initial, current, fired)}
	}

	text := e.printer.Alert(assetID, change, initial, current)
	messages := make([]string, len(fired))
	for i := range fired {
		messages[i] = text
	}
	return messages
}

func (e *Engine) notify(ctx context.Context, log logger.Logger, userID int64, text string) bool {
	callCtx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	if err := e.notifier.Notify(callCtx, userID, text); err != nil {
		log.WithError(err).Error("failed to send notification")
		return false
	}
	return true
}
