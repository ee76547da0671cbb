package visits

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/utils"
)

// Event types published after a visit changes
const (
	EventCreated = "visit.created"
	EventUpdated = "visit.updated"
	EventDeleted = "visit.deleted"
)

// Event describes a committed visit change
type Event struct {
	Type  string `json:"type"`
	Visit View   `json:"visit"`
}

// Publisher receives committed visit changes
type Publisher interface {
	PublishVisit(Event)
}

// Resolver maps external manager keys to identities
type Resolver interface {
	ByExternalKey(ctx context.Context, key string) (identity.Caller, error)
}

// Service implements the visit read and write paths
type Service struct {
	store    repository.Store
	resolver Resolver
	events   Publisher
	log      *zap.Logger
}

// NewService creates a visit Service. events may be nil.
func NewService(store repository.Store, resolver Resolver, events Publisher, log *zap.Logger) *Service {
	return &Service{store: store, resolver: resolver, events: events, log: log}
}

// ValidateUUID checks the caller supplied visit identity
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("visit id %q is not a UUID", id)
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, field, key string) (identity.Caller, error) {
	c, err := s.resolver.ByExternalKey(ctx, key)
	if errors.Is(err, identity.ErrUnknownIdentity) {
		return identity.Caller{}, apperr.Validation("%s %q does not match any account", field, key)
	}
	if err != nil {
		return identity.Caller{}, apperr.Internal(err, "failed to resolve "+field)
	}
	return c, nil
}

// resolveManager resolves a managerID. Only field agents manage visits.
func (s *Service) resolveManager(ctx context.Context, key string) (identity.Caller, error) {
	c, err := s.resolve(ctx, "managerID", key)
	if err != nil {
		return identity.Caller{}, err
	}
	if c.Role != identity.RoleAgent || c.ManagerID == "" {
		return identity.Caller{}, apperr.Validation("managerID %q is not a field manager", key)
	}
	return c, nil
}

// List returns the visits matching q that caller may see, ordered by date
// then insertion
func (s *Service) List(ctx context.Context, caller identity.Caller, q ListQuery) ([]View, error) {
	filter := repository.VisitFilter{
		Processed: q.Processed,
		Invoice:   q.Invoice,
		Status:    q.Status,
		ClientINN: q.ClientINN,
		DateFrom:  q.DateFrom,
		Database:  q.DataBase,
		Limit:     q.Limit,
	}

	if caller.Role.OwnVisitsOnly() {
		own := caller.ExternalKey()
		filter.ManagerID = &own
	} else if q.ManagerID != nil {
		manager, err := s.resolveManager(ctx, *q.ManagerID)
		if err != nil {
			return nil, err
		}
		key := manager.ExternalKey()
		filter.ManagerID = &key
	}

	if q.Author != nil {
		author, err := s.resolve(ctx, "author", *q.Author)
		if err != nil {
			return nil, err
		}
		key := author.ExternalKey()
		filter.AuthorID = &key
	}

	found, err := s.store.ListVisits(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list visits")
	}

	views := make([]View, 0, len(found))
	for i := range found {
		views = append(views, NewView(&found[i]))
	}
	return views, nil
}

// Get returns one visit. Agents only see visits they manage.
func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (View, error) {
	visit, err := s.load(ctx, caller, id)
	if err != nil {
		return View{}, err
	}
	return NewView(visit), nil
}

// Load returns the stored visit after the same checks as Get
func (s *Service) Load(ctx context.Context, caller identity.Caller, id string) (*models.Visit, error) {
	return s.load(ctx, caller, id)
}

func (s *Service) load(ctx context.Context, caller identity.Caller, id string) (*models.Visit, error) {
	if err := ValidateUUID(id); err != nil {
		return nil, err
	}
	visit, err := s.store.VisitByUUID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("visit %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load visit")
	}
	if !caller.CanViewVisit(visit) {
		return nil, apperr.Permission("visit %s belongs to another manager", id)
	}
	return visit, nil
}

// Upsert creates the visit when id is unknown and merges p into it otherwise.
// The header and all order lines are written in one transaction; any failure
// leaves the stored visit untouched. The bool result reports creation.
func (s *Service) Upsert(ctx context.Context, caller identity.Caller, id string, p Payload) (View, bool, error) {
	if err := ValidateUUID(id); err != nil {
		return View{}, false, err
	}
	if _, err := utils.Validate(p); err != nil {
		return View{}, false, err
	}

	var manager, author *identity.Caller
	if p.ManagerID != nil {
		c, err := s.resolveManager(ctx, *p.ManagerID)
		if err != nil {
			return View{}, false, err
		}
		manager = &c
	}
	if p.Author != nil {
		c, err := s.resolve(ctx, "author", *p.Author)
		if err != nil {
			return View{}, false, err
		}
		author = &c
	}

	var (
		view    View
		created bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		visit, err := tx.LockVisit(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			visit, err = newVisit(caller, id, p, manager)
			if err != nil {
				return err
			}
			created = true
		case err != nil:
			return apperr.Internal(err, "failed to load visit")
		case !caller.CanEditVisit(visit):
			if caller.OwnsVisit(visit) {
				return apperr.Permission("visit %s is completed and can no longer be changed", id)
			}
			return apperr.Permission("visit %s belongs to another manager", id)
		}

		if err := checkFieldRights(caller, visit, p, manager, created); err != nil {
			return err
		}

		if err := p.apply(visit); err != nil {
			return err
		}
		if manager != nil {
			visit.ManagerID = manager.ExternalKey()
		}
		if author != nil {
			visit.AuthorID = author.ExternalKey()
		}

		if err := tx.SaveVisit(ctx, visit); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("visit %s was created concurrently", id)
			}
			return apperr.Internal(err, "failed to save visit")
		}
		if err := mergeOrders(ctx, tx, visit, p.Orders); err != nil {
			return err
		}

		view = NewView(visit)
		return nil
	})
	if err != nil {
		return View{}, false, err
	}

	eventType := EventUpdated
	if created {
		eventType = EventCreated
	}
	s.publish(eventType, view)

	s.log.Info("visit saved",
		zap.String("visit", id),
		zap.Bool("created", created),
		zap.String("caller", caller.Username),
		zap.String("role", caller.Role.String()),
		zap.Int("order_lines", len(p.Orders)),
	)
	return view, created, nil
}

// newVisit builds the unsaved header for a first upsert
func newVisit(caller identity.Caller, id string, p Payload, manager *identity.Caller) (*models.Visit, error) {
	if p.ClientINN == nil {
		return nil, apperr.Validation("clientINN is required to create a visit")
	}

	visit := &models.Visit{
		UUID:     id,
		Database: true,
		Status:   models.VisitStatusUninitialized,
		AuthorID: caller.ExternalKey(),
	}
	switch {
	case caller.Role == identity.RoleAgent:
		visit.ManagerID = caller.ExternalKey()
	case manager != nil:
		visit.ManagerID = manager.ExternalKey()
	default:
		return nil, apperr.Validation("managerID is required to create a visit")
	}
	return visit, nil
}

// checkFieldRights applies the per-field role rules on top of CanEditVisit
func checkFieldRights(caller identity.Caller, visit *models.Visit, p Payload, manager *identity.Caller, created bool) error {
	if p.Status != nil && *p.Status != visit.Status && !caller.Role.CanSetStatus() {
		return apperr.Permission("role %s may not change visit status", caller.Role)
	}

	if manager != nil && manager.ExternalKey() != visit.ManagerID && !caller.Role.CanAssignManager() {
		return apperr.Permission("role %s may not assign visits to another manager", caller.Role)
	}

	if caller.Role == identity.RoleAgent {
		if p.Processed != nil && *p.Processed != visit.Processed {
			return apperr.Permission("the processed marker is set by accounting")
		}
		if p.Invoice != nil && *p.Invoice != visit.Invoice {
			return apperr.Permission("the invoice marker is set by accounting")
		}
	}
	return nil
}

// mergeOrders fetches or creates the line for every entry and overwrites the
// quantities the entry carries
func mergeOrders(ctx context.Context, tx repository.Store, visit *models.Visit, entries []OrderPayload) error {
	index := make(map[string]int, len(visit.Orders))
	for i, l := range visit.Orders {
		index[l.ProductItem] = i
	}

	for _, entry := range entries {
		i, ok := index[entry.ProductItem]
		if !ok {
			visit.Orders = append(visit.Orders, models.OrderLine{VisitID: visit.ID, ProductItem: entry.ProductItem})
			i = len(visit.Orders) - 1
			index[entry.ProductItem] = i
		}

		line := &visit.Orders[i]
		entry.apply(line)
		if err := tx.SaveOrderLine(ctx, line); err != nil {
			return apperr.Internal(err, "failed to save order line "+entry.ProductItem)
		}
	}
	return nil
}

// Delete removes a visit with its order lines and answers. Office only.
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	if !caller.Role.CanDeleteVisit() {
		return apperr.Permission("role %s may not delete visits", caller.Role)
	}
	if err := ValidateUUID(id); err != nil {
		return err
	}

	var view View
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		visit, err := tx.LockVisit(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("visit %s not found", id)
		}
		if err != nil {
			return apperr.Internal(err, "failed to load visit")
		}
		if err := tx.DeleteVisit(ctx, visit.ID); err != nil {
			return apperr.Internal(err, "failed to delete visit")
		}
		view = NewView(visit)
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(EventDeleted, view)
	s.log.Info("visit deleted", zap.String("visit", id), zap.String("caller", caller.Username))
	return nil
}

func (s *Service) publish(eventType string, view View) {
	if s.events == nil {
		return
	}
	s.events.PublishVisit(Event{Type: eventType, Visit: view})
}
