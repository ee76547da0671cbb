// Package catalog serves the client, product and price reference data that
// accounting owns. Field agents read it; office staff may correct it.
package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/utils"
)

type Service struct {
	store repository.Store
	log   *zap.Logger
}

func NewService(store repository.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func requireCatalogRole(caller identity.Caller) error {
	if !caller.Role.CanManageCatalog() {
		return apperr.Permission("role %s may not edit the catalog", caller.Role)
	}
	return nil
}

func requireKey(kind, key string) error {
	if strings.TrimSpace(key) == "" || len(key) > 64 {
		return apperr.Validation("%s must be 1 to 64 characters", kind)
	}
	return nil
}

// --- clients ---

// ListClients returns clients matching q. Agents only see clients they manage
// or are authorized for.
func (s *Service) ListClients(ctx context.Context, caller identity.Caller, q ClientQuery) ([]models.Client, error) {
	filter := repository.ClientFilter{
		INN:       q.INN,
		ManagerID: q.Manager,
		Active:    q.Active,
		Database:  q.DataBase,
	}
	if caller.Role.OwnVisitsOnly() {
		own := caller.ExternalKey()
		filter.VisibleTo = &own
	}

	clients, err := s.store.ListClients(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list clients")
	}
	if clients == nil {
		clients = []models.Client{}
	}
	return clients, nil
}

func (s *Service) GetClient(ctx context.Context, caller identity.Caller, inn string) (*models.Client, error) {
	client, err := s.store.ClientByINN(ctx, inn)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("client %s not found", inn)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load client")
	}
	if caller.Role.OwnVisitsOnly() && !client.VisibleTo(caller.ExternalKey()) {
		return nil, apperr.Permission("client %s is not assigned to you", inn)
	}
	return client, nil
}

// UpsertClient creates or replaces the client keyed by inn
func (s *Service) UpsertClient(ctx context.Context, caller identity.Caller, inn string, p ClientPayload) (*models.Client, bool, error) {
	if err := requireCatalogRole(caller); err != nil {
		return nil, false, err
	}
	if err := requireKey("inn", inn); err != nil {
		return nil, false, err
	}
	if _, err := utils.Validate(p); err != nil {
		return nil, false, err
	}

	client := p.toModel(inn)
	var created bool
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.ClientByINN(ctx, inn)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			created = true
		case err != nil:
			return err
		default:
			client.AccountingID = existing.AccountingID
		}
		return tx.UpsertClients(ctx, []models.Client{client})
	})
	if err != nil {
		return nil, false, apperr.Internal(err, "failed to save client")
	}

	saved, err := s.store.ClientByINN(ctx, inn)
	if err != nil {
		return nil, false, apperr.Internal(err, "failed to reload client")
	}
	s.log.Info("client saved", zap.String("inn", inn), zap.Bool("created", created), zap.String("caller", caller.Username))
	return saved, created, nil
}

func (s *Service) DeleteClient(ctx context.Context, caller identity.Caller, inn string) error {
	if err := requireCatalogRole(caller); err != nil {
		return err
	}
	err := s.store.DeleteClient(ctx, inn)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("client %s not found", inn)
	}
	if err != nil {
		return apperr.Internal(err, "failed to delete client")
	}
	s.log.Info("client deleted", zap.String("inn", inn), zap.String("caller", caller.Username))
	return nil
}

// --- products ---

func (s *Service) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	products, err := s.store.ListProducts(ctx, repository.ProductFilter{Item: q.Item, Active: q.Active})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, item string) (*models.Product, error) {
	product, err := s.store.ProductByItem(ctx, item)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("product %s not found", item)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load product")
	}
	return product, nil
}

// UpsertProduct creates or replaces the product keyed by item
func (s *Service) UpsertProduct(ctx context.Context, caller identity.Caller, item string, p ProductPayload) (*models.Product, bool, error) {
	if err := requireCatalogRole(caller); err != nil {
		return nil, false, err
	}
	if err := requireKey("item", item); err != nil {
		return nil, false, err
	}
	if _, err := utils.Validate(p); err != nil {
		return nil, false, err
	}

	product := p.toModel(item)
	var created bool
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		existing, err := tx.ProductByItem(ctx, item)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			created = true
		case err != nil:
			return err
		default:
			product.AccountingID = existing.AccountingID
			product.RawData = existing.RawData
		}
		return tx.UpsertProducts(ctx, []models.Product{product})
	})
	if err != nil {
		return nil, false, apperr.Internal(err, "failed to save product")
	}

	saved, err := s.store.ProductByItem(ctx, item)
	if err != nil {
		return nil, false, apperr.Internal(err, "failed to reload product")
	}
	s.log.Info("product saved", zap.String("item", item), zap.Bool("created", created), zap.String("caller", caller.Username))
	return saved, created, nil
}

func (s *Service) DeleteProduct(ctx context.Context, caller identity.Caller, item string) error {
	if err := requireCatalogRole(caller); err != nil {
		return err
	}
	err := s.store.DeleteProduct(ctx, item)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("product %s not found", item)
	}
	if err != nil {
		return apperr.Internal(err, "failed to delete product")
	}
	s.log.Info("product deleted", zap.String("item", item), zap.String("caller", caller.Username))
	return nil
}

// --- prices ---

func (s *Service) ListPrices(ctx context.Context, q PriceQuery) ([]models.Price, error) {
	prices, err := s.store.ListPrices(ctx, repository.PriceFilter{Item: q.Item, PriceType: q.PriceType})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list prices")
	}
	if prices == nil {
		prices = []models.Price{}
	}
	return prices, nil
}

// ReplacePrices upserts a batch of prices in one transaction. The whole batch
// is rejected when any entry is invalid or repeats an (item, price type) pair.
func (s *Service) ReplacePrices(ctx context.Context, caller identity.Caller, entries []PricePayload) (int, error) {
	if err := requireCatalogRole(caller); err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, apperr.Validation("price batch is empty")
	}
	seen := make(map[[2]string]bool, len(entries))
	prices := make([]models.Price, 0, len(entries))
	for i, e := range entries {
		if _, err := utils.Validate(e); err != nil {
			return 0, apperr.Validation("price %d: %s", i, apperr.PublicMessage(err))
		}
		key := [2]string{e.ProductItem, e.PriceType}
		if seen[key] {
			return 0, apperr.Validation("price for %s/%s appears twice", e.ProductItem, e.PriceType)
		}
		seen[key] = true
		prices = append(prices, models.Price{ProductItem: e.ProductItem, PriceType: e.PriceType, Value: e.Value})
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		return tx.UpsertPrices(ctx, prices)
	})
	if err != nil {
		return 0, apperr.Internal(err, "failed to save prices")
	}
	s.log.Info("prices replaced", zap.Int("count", len(prices)), zap.String("caller", caller.Username))
	return len(prices), nil
}
