package memory

import (
	"context"
	"sort"

	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
)

type priceKey struct {
	item      string
	priceType string
}

// --- clients ---

func (s *Store) ListClients(_ context.Context, f repository.ClientFilter) ([]models.Client, error) {
	defer s.lock()()

	var clients []models.Client
	for _, c := range s.st.clients {
		if f.INN != nil && c.INN != *f.INN {
			continue
		}
		if f.ManagerID != nil && c.ManagerID != *f.ManagerID {
			continue
		}
		if f.VisibleTo != nil && !c.VisibleTo(*f.VisibleTo) {
			continue
		}
		if f.Active != nil && c.Active != *f.Active {
			continue
		}
		if f.Database != nil && c.Database != *f.Database {
			continue
		}
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].INN < clients[j].INN })
	return clients, nil
}

func (s *Store) ClientByINN(_ context.Context, inn string) (*models.Client, error) {
	defer s.lock()()
	c, ok := s.st.clients[inn]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) UpsertClients(_ context.Context, clients []models.Client) error {
	defer s.lock()()
	for i := range clients {
		c := &clients[i]
		if existing, ok := s.st.clients[c.INN]; ok {
			c.ID, c.CreatedAt = existing.ID, existing.CreatedAt
		} else {
			s.st.lastCat++
			c.ID, c.CreatedAt = s.st.lastCat, now()
		}
		c.UpdatedAt = now()
		s.st.clients[c.INN] = *c
	}
	return nil
}

func (s *Store) DeleteClient(_ context.Context, inn string) error {
	defer s.lock()()
	if _, ok := s.st.clients[inn]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.clients, inn)
	return nil
}

// --- products ---

func (s *Store) ListProducts(_ context.Context, f repository.ProductFilter) ([]models.Product, error) {
	defer s.lock()()

	var products []models.Product
	for _, p := range s.st.products {
		if f.Item != nil && p.Item != *f.Item {
			continue
		}
		if f.Active != nil && p.Active != *f.Active {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Item < products[j].Item })
	return products, nil
}

func (s *Store) ProductByItem(_ context.Context, item string) (*models.Product, error) {
	defer s.lock()()
	p, ok := s.st.products[item]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpsertProducts(_ context.Context, products []models.Product) error {
	defer s.lock()()
	for i := range products {
		p := &products[i]
		if existing, ok := s.st.products[p.Item]; ok {
			p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
		} else {
			s.st.lastCat++
			p.ID, p.CreatedAt = s.st.lastCat, now()
		}
		p.UpdatedAt = now()
		s.st.products[p.Item] = *p
	}
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, item string) error {
	defer s.lock()()
	if _, ok := s.st.products[item]; !ok {
		return repository.ErrNotFound
	}
	delete(s.st.products, item)
	return nil
}

// --- prices ---

func (s *Store) ListPrices(_ context.Context, f repository.PriceFilter) ([]models.Price, error) {
	defer s.lock()()

	var prices []models.Price
	for _, p := range s.st.prices {
		if f.Item != nil && p.ProductItem != *f.Item {
			continue
		}
		if f.PriceType != nil && p.PriceType != *f.PriceType {
			continue
		}
		prices = append(prices, p)
	}
	sort.Slice(prices, func(i, j int) bool {
		if prices[i].ProductItem != prices[j].ProductItem {
			return prices[i].ProductItem < prices[j].ProductItem
		}
		return prices[i].PriceType < prices[j].PriceType
	})
	return prices, nil
}

func (s *Store) UpsertPrices(_ context.Context, prices []models.Price) error {
	defer s.lock()()
	for i := range prices {
		p := &prices[i]
		key := priceKey{p.ProductItem, p.PriceType}
		if existing, ok := s.st.prices[key]; ok {
			p.ID = existing.ID
		} else {
			s.st.lastCat++
			p.ID = s.st.lastCat
		}
		p.UpdatedAt = now()
		s.st.prices[key] = *p
	}
	return nil
}

// --- sync history ---

func (s *Store) SaveSyncHistory(_ context.Context, run *models.SyncHistory) error {
	defer s.lock()()
	if run.ID == 0 {
		run.ID = int64(len(s.st.syncRuns) + 1)
		s.st.syncRuns = append(s.st.syncRuns, *run)
		return nil
	}
	for i := range s.st.syncRuns {
		if s.st.syncRuns[i].ID == run.ID {
			s.st.syncRuns[i] = *run
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) ListSyncHistory(_ context.Context, limit int) ([]models.SyncHistory, error) {
	defer s.lock()()
	runs := make([]models.SyncHistory, 0, len(s.st.syncRuns))
	for i := len(s.st.syncRuns) - 1; i >= 0; i-- {
		if limit > 0 && len(runs) == limit {
			break
		}
		runs = append(runs, s.st.syncRuns[i])
	}
	return runs, nil
}
