// Package command implements the user intents of the bot independently of the chat transport
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raykavin/pricewatch/pkg/core"
	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/raykavin/pricewatch/pkg/render"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLookupTimeout = 10 * time.Second
	listConcurrency      = 4
)

// Reply is the answer to a command
type Reply struct {
	Text string
	HTML bool // Text uses HTML markup
}

// Service executes track, list and remove requests against the store
type Service struct {
	store    core.Store
	source   core.PriceSource
	printer  *render.Printer
	log      logger.Logger
	settings core.Settings
	timeout  time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithLookupTimeout bounds the price lookups done while answering a command
func WithLookupTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithPrinter sets the message renderer
func WithPrinter(printer *render.Printer) Option {
	return func(s *Service) {
		s.printer = printer
	}
}

// NewService creates a command service. Missing thresholds and policy fall back to the defaults.
func NewService(store core.Store, source core.PriceSource, settings core.Settings,
	log logger.Logger, options ...Option) *Service {

	if len(settings.Thresholds) == 0 {
		settings.Thresholds = core.DefaultThresholds()
	}
	if !settings.Duplicate.Valid() {
		settings.Duplicate = core.PolicyReject
	}

	service := &Service{
		store:    store,
		source:   source,
		printer:  render.New("usd"),
		log:      log,
		settings: settings,
		timeout:  DefaultLookupTimeout,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

// Help returns the welcome text
func (s *Service) Help() Reply {
	return Reply{Text: s.printer.Help()}
}

// Track starts tracking rawAsset for the user at its current price.
// The returned error classifies refused requests, the reply is always user ready.
func (s *Service) Track(ctx context.Context, userID int64, rawAsset string) (Reply, error) {
	assetID := core.NormalizeAsset(rawAsset)
	if assetID == "" {
		return Reply{Text: s.printer.Usage("track")}, core.ErrEmptyAsset
	}

	log := s.log.WithFields(map[string]any{"user": userID, "asset": assetID})

	if s.settings.Duplicate == core.PolicyReject {
		if existing, ok := s.store.Get(userID, assetID); ok {
			return Reply{Text: s.printer.AlreadyTracking(existing)}, core.ErrAlreadyTracking
		}
	}

	price, err := s.lookup(ctx, assetID)
	if err != nil {
		log.WithError(err).Warn("initial price lookup failed")
		return Reply{Text: s.printer.UnknownAsset(assetID)}, err
	}

	var record core.TrackingRecord
	switch s.settings.Duplicate {
	case core.PolicyReplace:
		record, err = s.store.Replace(userID, assetID, price, s.settings.Thresholds)
	default:
		record, err = s.store.Create(userID, assetID, price, s.settings.Thresholds)
	}

	if errors.Is(err, core.ErrAlreadyTracking) {
		existing, _ := s.store.Get(userID, assetID)
		return Reply{Text: s.printer.AlreadyTracking(existing)}, err
	}
	if err != nil {
		log.WithError(err).Error("failed to create tracking record")
		return Reply{Text: s.printer.UnknownAsset(assetID)}, err
	}

	log.WithField("price", price).Info("tracking started")
	return Reply{Text: s.printer.TrackingStarted(record)}, nil
}

// List shows every record of the user with its current price.
// Prices fetched here are display only and never touch the pending thresholds.
func (s *Service) List(ctx context.Context, userID int64) Reply {
	records := s.store.GetAllForUser(userID)
	if len(records) == 0 {
		return Reply{Text: s.printer.NoAlerts()}
	}

	rows := make([]render.Row, len(records))
	group := new(errgroup.Group)
	group.SetLimit(listConcurrency)

	for i, record := range records {
		group.Go(func() error {
			row := render.Row{Record: record}
			price, err := s.lookup(ctx, record.AssetID)
			if err != nil {
				s.log.WithField("asset", record.AssetID).WithError(err).Debug("price unavailable for listing")
			} else {
				row.Current, row.Available = price, true
			}
			rows[i] = row
			return nil
		})
	}
	_ = group.Wait()

	return Reply{Text: s.printer.List(rows), HTML: true}
}

// Remove stops tracking rawAsset for the user
func (s *Service) Remove(userID int64, rawAsset string) (Reply, error) {
	assetID := core.NormalizeAsset(rawAsset)
	if assetID == "" {
		return Reply{Text: s.printer.Usage("remove")}, core.ErrEmptyAsset
	}

	if !s.store.Remove(userID, assetID) {
		return Reply{Text: s.printer.NotTracking(assetID)}, core.ErrNotFound
	}

	s.log.WithFields(map[string]any{"user": userID, "asset": assetID}).Info("tracking stopped by user")
	return Reply{Text: s.printer.Stopped(assetID)}, nil
}

func (s *Service) lookup(ctx context.Context, assetID string) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	price, err := s.source.Price(callCtx, assetID)
	if err != nil {
		return 0, err
	}
	if !(price > 0) {
		return 0, fmt.Errorf("%w: non-positive price for %s", core.ErrPriceUnavailable, assetID)
	}
	return price, nil
}
