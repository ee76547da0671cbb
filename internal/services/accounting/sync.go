// Package accounting pulls the client, product and price catalogs from the
// accounting gateway into the local database.
package accounting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
)

// Sync run triggers
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)

// Sync run statuses
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"
)

const (
	pageSize     = 500
	initialDelay = 5 * time.Second
)

// Source is the subset of the gateway client the sync needs
type Source interface {
	Authenticate(ctx context.Context) (int, error)
	SearchRead(ctx context.Context, model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error
}

// Store is the persistence the sync writes to
type Store interface {
	repository.CatalogStore
	repository.SyncHistoryStore
}

// SyncService orchestrates catalog synchronization
type SyncService struct {
	source   Source
	store    Store
	interval time.Duration
	log      *zap.Logger

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSyncService creates a sync service. interval <= 0 disables the schedule;
// RunOnce still works.
func NewSyncService(source Source, store Store, interval time.Duration, log *zap.Logger) *SyncService {
	return &SyncService{
		source:   source,
		store:    store,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background synchronization loop
func (s *SyncService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("accounting sync schedule disabled")
		close(s.done)
		return
	}

	go func() {
		defer close(s.done)
		s.log.Info("accounting sync service started", zap.Duration("interval", s.interval))

		select {
		case <-time.After(initialDelay):
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
		s.runScheduled(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runScheduled(ctx)
			case <-s.stop:
				s.log.Info("accounting sync service stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for a run in progress to finish
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *SyncService) runScheduled(ctx context.Context) {
	if _, err := s.RunOnce(ctx, TriggerSchedule); err != nil {
		s.log.Warn("scheduled accounting sync skipped", zap.Error(err))
	}
}

// History returns the latest sync runs
func (s *SyncService) History(ctx context.Context, limit int) ([]models.SyncHistory, error) {
	runs, err := s.store.ListSyncHistory(ctx, limit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list sync history")
	}
	return runs, nil
}

// RunOnce performs one full sync and records it. Gateway failures are
// reported through the run status; the error is reserved for overlapping
// runs and for failures to record the run.
func (s *SyncService) RunOnce(ctx context.Context, trigger string) (*models.SyncHistory, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperr.Conflict("accounting sync is already running")
	}
	defer s.running.Store(false)

	run := &models.SyncHistory{
		Provider:  "accounting",
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.SaveSyncHistory(ctx, run); err != nil {
		return nil, apperr.Internal(err, "failed to record sync run")
	}
	s.log.Info("accounting sync started", zap.String("trigger", trigger), zap.Int64("run", run.ID))

	var errs []string
	fail := func(stage string, err error) {
		s.log.Error("accounting sync stage failed", zap.String("stage", stage), zap.Error(err))
		errs = append(errs, fmt.Sprintf("%s: %v", stage, err))
	}

	stages := 0
	if _, err := s.source.Authenticate(ctx); err != nil {
		fail("authenticate", err)
	} else {
		stages = 3
		var err error
		if run.Clients, err = s.syncClients(ctx); err != nil {
			fail("clients", err)
		}
		if run.Products, err = s.syncProducts(ctx); err != nil {
			fail("products", err)
		}
		if run.Prices, err = s.syncPrices(ctx); err != nil {
			fail("prices", err)
		}
	}

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.Duration = completed.Sub(run.StartedAt).Milliseconds()
	run.Errors = len(errs)
	switch {
	case len(errs) == 0:
		run.Status = StatusSuccess
	case len(errs) < stages:
		run.Status = StatusPartial
	default:
		run.Status = StatusError
	}
	if len(errs) > 0 {
		run.ErrorDetail = strings.Join(errs, "; ")
		run.DebugInfo = models.JSONB{"errors": errs}
	}

	if err := s.store.SaveSyncHistory(context.WithoutCancel(ctx), run); err != nil {
		return run, apperr.Internal(err, "failed to record sync result")
	}

	s.log.Info("accounting sync finished",
		zap.String("status", run.Status),
		zap.Int("clients", run.Clients),
		zap.Int("products", run.Products),
		zap.Int("prices", run.Prices),
		zap.Int64("duration_ms", run.Duration),
	)
	return run, nil
}

// searchAll pages through search_read until a short page
func searchAll[T any](ctx context.Context, src Source, model string, domain []interface{}, fields []string) ([]T, error) {
	var all []T
	for offset := 0; ; offset += pageSize {
		var page []T
		if err := src.SearchRead(ctx, model, domain, fields, pageSize, offset, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (s *SyncService) syncClients(ctx context.Context) (int, error) {
	domain := []interface{}{
		[]interface{}{"is_company", "=", true},
		[]interface{}{"customer_rank", ">", 0},
	}
	records, err := searchAll[partnerRecord](ctx, s.source, "res.partner", domain, partnerFields)
	if err != nil {
		return 0, err
	}

	clients := make([]models.Client, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		c, ok := mapPartner(r)
		if !ok || seen[c.INN] {
			continue
		}
		seen[c.INN] = true
		clients = append(clients, c)
	}
	if err := s.store.UpsertClients(ctx, clients); err != nil {
		return 0, err
	}
	return len(clients), nil
}

func (s *SyncService) syncProducts(ctx context.Context) (int, error) {
	domain := []interface{}{
		[]interface{}{"sale_ok", "=", true},
	}
	records, err := searchAll[productRecord](ctx, s.source, "product.product", domain, productFields)
	if err != nil {
		return 0, err
	}

	products := make([]models.Product, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		p, ok := mapProduct(r)
		if !ok || seen[p.Item] {
			continue
		}
		seen[p.Item] = true
		products = append(products, p)
	}
	if err := s.store.UpsertProducts(ctx, products); err != nil {
		return 0, err
	}
	return len(products), nil
}

func (s *SyncService) syncPrices(ctx context.Context) (int, error) {
	domain := []interface{}{
		[]interface{}{"applied_on", "=", "0_product_variant"},
	}
	records, err := searchAll[priceRecord](ctx, s.source, "product.pricelist.item", domain, priceFields)
	if err != nil {
		return 0, err
	}

	products, err := s.store.ListProducts(ctx, repository.ProductFilter{})
	if err != nil {
		return 0, err
	}
	items := make(map[int64]string, len(products))
	for _, p := range products {
		if p.AccountingID != 0 {
			items[p.AccountingID] = p.Item
		}
	}

	prices := make([]models.Price, 0, len(records))
	seen := make(map[[2]string]bool, len(records))
	for _, r := range records {
		p, ok := mapPrice(r, items)
		key := [2]string{p.ProductItem, p.PriceType}
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		prices = append(prices, p)
	}
	if err := s.store.UpsertPrices(ctx, prices); err != nil {
		return 0, err
	}
	return len(prices), nil
}
