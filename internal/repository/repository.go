// Package repository is the persistence boundary for identities, visits,
// checklists, photos and the accounting catalog. Store is implemented on gorm for production and in
// package memory for tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/xelth-com/mprgo/internal/models"
)

var (
	// ErrNotFound is returned when a keyed lookup matches nothing
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique key
	ErrDuplicate = errors.New("duplicate record")
)

// VisitFilter narrows ListVisits. Nil fields do not filter.
type VisitFilter struct {
	ManagerID *string
	AuthorID  *string
	Processed *bool // true: marker set, false: marker empty
	Invoice   *bool
	Status    *int
	ClientINN *string
	DateFrom  *time.Time
	Database  *bool
	Limit     int
}

// AnswerFilter narrows ListAnswers. Nil fields do not filter.
type AnswerFilter struct {
	VisitUUID    *string
	ClientINN    *string
	QuestionUUID *string
	ManagerID    *string
}

// QuestionFilter narrows ListQuestions. A nil Active keeps every question.
type QuestionFilter struct {
	Active     *bool
	ClientType *string
}

// ClientFilter narrows ListClients. VisibleTo keeps clients a field agent
// manages or is authorized for.
type ClientFilter struct {
	INN       *string
	ManagerID *string
	VisibleTo *string
	Active    *bool
	Database  *bool
}

type ProductFilter struct {
	Item   *string
	Active *bool
}

type PriceFilter struct {
	Item      *string
	PriceType *string
}

type UserStore interface {
	UserByID(ctx context.Context, id string) (*models.UserAuth, error)
	UserByUsername(ctx context.Context, username string) (*models.UserAuth, error)
	// UserByExternalKey matches the external manager id first, then the username
	UserByExternalKey(ctx context.Context, key string) (*models.UserAuth, error)
	CreateUser(ctx context.Context, user *models.UserAuth) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
}

type VisitStore interface {
	// VisitByUUID returns the visit with its order lines
	VisitByUUID(ctx context.Context, uuid string) (*models.Visit, error)
	// LockVisit is VisitByUUID that also holds a row lock until the transaction ends
	LockVisit(ctx context.Context, uuid string) (*models.Visit, error)
	ListVisits(ctx context.Context, filter VisitFilter) ([]models.Visit, error)
	// SaveVisit inserts the header when ID is zero, updates it otherwise.
	// Order lines are not written.
	SaveVisit(ctx context.Context, visit *models.Visit) error
	// SaveOrderLine inserts or merges the line on (VisitID, ProductItem)
	SaveOrderLine(ctx context.Context, line *models.OrderLine) error
	// DeleteVisit removes the visit with its order lines and answers
	DeleteVisit(ctx context.Context, id uint) error
}

type ChecklistStore interface {
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]models.ChecklistQuestion, error)
	QuestionByUUID(ctx context.Context, uuid string) (*models.ChecklistQuestion, error)
	SaveQuestion(ctx context.Context, question *models.ChecklistQuestion) error
	// DeleteQuestion removes the question and its answers
	DeleteQuestion(ctx context.Context, uuid string) error
	CreateAnswer(ctx context.Context, answer *models.ChecklistAnswer) error
	ListAnswers(ctx context.Context, filter AnswerFilter) ([]models.ChecklistAnswer, error)
}

type PhotoStore interface {
	CreatePhoto(ctx context.Context, photo *models.Photo) error
	ListPhotos(ctx context.Context, visitUUID string) ([]models.Photo, error)
	PhotoByUUID(ctx context.Context, uuid string) (*models.Photo, error)
}

// CatalogStore holds the reference data owned by accounting. Upserts merge
// on the natural key and are atomic per row.
type CatalogStore interface {
	ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error)
	ClientByINN(ctx context.Context, inn string) (*models.Client, error)
	UpsertClients(ctx context.Context, clients []models.Client) error
	DeleteClient(ctx context.Context, inn string) error

	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	ProductByItem(ctx context.Context, item string) (*models.Product, error)
	UpsertProducts(ctx context.Context, products []models.Product) error
	DeleteProduct(ctx context.Context, item string) error

	ListPrices(ctx context.Context, filter PriceFilter) ([]models.Price, error)
	UpsertPrices(ctx context.Context, prices []models.Price) error
}

// SyncHistoryStore records accounting sync runs
type SyncHistoryStore interface {
	SaveSyncHistory(ctx context.Context, run *models.SyncHistory) error
	// ListSyncHistory returns the latest runs first
	ListSyncHistory(ctx context.Context, limit int) ([]models.SyncHistory, error)
}

// Store is the full persistence surface
type Store interface {
	UserStore
	VisitStore
	ChecklistStore
	PhotoStore
	CatalogStore
	SyncHistoryStore

	// Transaction runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
