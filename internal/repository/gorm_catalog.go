package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/mprgo/internal/models"
)

const upsertBatchSize = 500

// --- clients ---

func (s *GormStore) ListClients(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	q := s.db.WithContext(ctx).Model(&models.Client{})
	if f.INN != nil {
		q = q.Where("inn = ?", *f.INN)
	}
	if f.ManagerID != nil {
		q = q.Where("manager_id = ?", *f.ManagerID)
	}
	if f.VisibleTo != nil {
		q = q.Where("manager_id = ? OR authorized_managers @> ?", *f.VisibleTo, datatypes.JSONSlice[string]{*f.VisibleTo})
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if f.Database != nil {
		q = q.Where("data_base = ?", *f.Database)
	}

	var clients []models.Client
	err := q.Order("inn ASC").Find(&clients).Error
	return clients, err
}

func (s *GormStore) ClientByINN(ctx context.Context, inn string) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("inn = ?", inn).First(&client).Error; err != nil {
		return nil, translate(err)
	}
	return &client, nil
}

func (s *GormStore) UpsertClients(ctx context.Context, clients []models.Client) error {
	if len(clients) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "inn"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "client_type", "price_type", "delay", "credit_limit", "email", "phone",
			"address", "manager_id", "authorized_managers", "active", "data_base",
			"accounting_id", "updated_at",
		}),
	}).CreateInBatches(clients, upsertBatchSize).Error)
}

func (s *GormStore) DeleteClient(ctx context.Context, inn string) error {
	res := s.db.WithContext(ctx).Where("inn = ?", inn).Delete(&models.Client{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- products ---

func (s *GormStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q := s.db.WithContext(ctx).Model(&models.Product{})
	if f.Item != nil {
		q = q.Where("item = ?", *f.Item)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}

	var products []models.Product
	err := q.Order("item ASC").Find(&products).Error
	return products, err
}

func (s *GormStore) ProductByItem(ctx context.Context, item string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("item = ?", item).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (s *GormStore) UpsertProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "unit", "active", "accounting_id", "raw_data", "updated_at"}),
	}).CreateInBatches(products, upsertBatchSize).Error)
}

func (s *GormStore) DeleteProduct(ctx context.Context, item string) error {
	res := s.db.WithContext(ctx).Where("item = ?", item).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- prices ---

func (s *GormStore) ListPrices(ctx context.Context, f PriceFilter) ([]models.Price, error) {
	q := s.db.WithContext(ctx).Model(&models.Price{})
	if f.Item != nil {
		q = q.Where("product_item = ?", *f.Item)
	}
	if f.PriceType != nil {
		q = q.Where("price_type = ?", *f.PriceType)
	}

	var prices []models.Price
	err := q.Order("product_item ASC").Order("price_type ASC").Find(&prices).Error
	return prices, err
}

func (s *GormStore) UpsertPrices(ctx context.Context, prices []models.Price) error {
	if len(prices) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_item"}, {Name: "price_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).CreateInBatches(prices, upsertBatchSize).Error)
}

// --- sync history ---

func (s *GormStore) SaveSyncHistory(ctx context.Context, run *models.SyncHistory) error {
	return translate(s.db.WithContext(ctx).Save(run).Error)
}

func (s *GormStore) ListSyncHistory(ctx context.Context, limit int) ([]models.SyncHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.SyncHistory
	err := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
