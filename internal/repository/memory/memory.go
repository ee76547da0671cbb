// Package memory is an in-process repository.Store. Transactions run on a copy
// of the state that replaces the live state on commit, so a failed
// transaction leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
)

type state struct {
	users     map[string]models.UserAuth
	visits    map[uint]models.Visit
	lines     map[uint]models.OrderLine
	questions map[string]models.ChecklistQuestion
	answers   map[string]models.ChecklistAnswer
	photos    map[string]models.Photo
	clients   map[string]models.Client
	products  map[string]models.Product
	prices    map[priceKey]models.Price
	syncRuns  []models.SyncHistory

	// insertion order for rows keyed by uuid
	seq      map[string]uint64
	lastSeq  uint64
	lastVID  uint
	lastLine uint
	lastCat  uint
}

func newState() *state {
	return &state{
		users:     map[string]models.UserAuth{},
		visits:    map[uint]models.Visit{},
		lines:     map[uint]models.OrderLine{},
		questions: map[string]models.ChecklistQuestion{},
		answers:   map[string]models.ChecklistAnswer{},
		photos:    map[string]models.Photo{},
		clients:   map[string]models.Client{},
		products:  map[string]models.Product{},
		prices:    map[priceKey]models.Price{},
		seq:       map[string]uint64{},
	}
}

func (st *state) clone() *state {
	c := &state{
		users:     make(map[string]models.UserAuth, len(st.users)),
		visits:    make(map[uint]models.Visit, len(st.visits)),
		lines:     make(map[uint]models.OrderLine, len(st.lines)),
		questions: make(map[string]models.ChecklistQuestion, len(st.questions)),
		answers:   make(map[string]models.ChecklistAnswer, len(st.answers)),
		photos:    make(map[string]models.Photo, len(st.photos)),
		clients:   make(map[string]models.Client, len(st.clients)),
		products:  make(map[string]models.Product, len(st.products)),
		prices:    make(map[priceKey]models.Price, len(st.prices)),
		seq:       make(map[string]uint64, len(st.seq)),
		lastSeq:   st.lastSeq,
		lastVID:   st.lastVID,
		lastLine:  st.lastLine,
		lastCat:   st.lastCat,
		syncRuns:  append([]models.SyncHistory(nil), st.syncRuns...),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.visits {
		c.visits[k] = v
	}
	for k, v := range st.lines {
		c.lines[k] = v
	}
	for k, v := range st.questions {
		c.questions[k] = v
	}
	for k, v := range st.answers {
		c.answers[k] = v
	}
	for k, v := range st.photos {
		c.photos[k] = v
	}
	for k, v := range st.clients {
		c.clients[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.prices {
		c.prices[k] = v
	}
	for k, v := range st.seq {
		c.seq[k] = v
	}
	return c
}

func (st *state) nextSeq(key string) {
	st.lastSeq++
	st.seq[key] = st.lastSeq
}

// Store is a repository.Store held in memory
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&Store{mu: s.mu, st: work, inTx: true}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

// --- users ---

func (s *Store) UserByID(_ context.Context, id string) (*models.UserAuth, error) {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (*models.UserAuth, error) {
	defer s.lock()()
	for _, u := range s.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UserByExternalKey(_ context.Context, key string) (*models.UserAuth, error) {
	defer s.lock()()
	for _, u := range s.st.users {
		if u.ManagerID != nil && *u.ManagerID == key {
			return &u, nil
		}
	}
	for _, u := range s.st.users {
		if u.ManagerID == nil && u.Username == key {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user *models.UserAuth) error {
	defer s.lock()()
	for _, u := range s.st.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
		if u.ManagerID != nil && user.ManagerID != nil && *u.ManagerID == *user.ManagerID {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, exists := s.st.users[user.ID]; exists {
		return repository.ErrDuplicate
	}
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	s.st.users[user.ID] = *user
	return nil
}

func (s *Store) TouchLogin(_ context.Context, id string, at time.Time) error {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return nil
	}
	u.LastLogin = &at
	s.st.users[id] = u
	return nil
}

// --- visits ---

func (st *state) visitByUUID(id string) (models.Visit, bool) {
	for _, v := range st.visits {
		if v.UUID == id {
			return v, true
		}
	}
	return models.Visit{}, false
}

func (st *state) withOrders(v models.Visit) models.Visit {
	v.Orders = []models.OrderLine{}
	for _, l := range st.lines {
		if l.VisitID == v.ID {
			v.Orders = append(v.Orders, l)
		}
	}
	sort.Slice(v.Orders, func(i, j int) bool { return v.Orders[i].ID < v.Orders[j].ID })
	return v
}

func (s *Store) VisitByUUID(_ context.Context, id string) (*models.Visit, error) {
	defer s.lock()()
	v, ok := s.st.visitByUUID(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	v = s.st.withOrders(v)
	return &v, nil
}

// LockVisit needs no extra locking: transactions are serialized.
func (s *Store) LockVisit(ctx context.Context, id string) (*models.Visit, error) {
	return s.VisitByUUID(ctx, id)
}

func matchVisit(v models.Visit, f repository.VisitFilter) bool {
	if f.ManagerID != nil && v.ManagerID != *f.ManagerID {
		return false
	}
	if f.AuthorID != nil && v.AuthorID != *f.AuthorID {
		return false
	}
	if f.Processed != nil && (v.Processed != "") != *f.Processed {
		return false
	}
	if f.Invoice != nil && (v.Invoice != "") != *f.Invoice {
		return false
	}
	if f.Status != nil && v.Status != *f.Status {
		return false
	}
	if f.ClientINN != nil && v.ClientINN != *f.ClientINN {
		return false
	}
	if f.DateFrom != nil && (v.Date == nil || v.Date.Before(*f.DateFrom)) {
		return false
	}
	if f.Database != nil && v.Database != *f.Database {
		return false
	}
	return true
}

func (s *Store) ListVisits(_ context.Context, f repository.VisitFilter) ([]models.Visit, error) {
	defer s.lock()()

	var visits []models.Visit
	for _, v := range s.st.visits {
		if matchVisit(v, f) {
			visits = append(visits, s.st.withOrders(v))
		}
	}

	// date ascending with undated visits last, then insertion order
	sort.Slice(visits, func(i, j int) bool {
		a, b := visits[i], visits[j]
		switch {
		case a.Date == nil && b.Date == nil:
			return a.ID < b.ID
		case a.Date == nil:
			return false
		case b.Date == nil:
			return true
		case !a.Date.Equal(*b.Date):
			return a.Date.Before(*b.Date)
		}
		return a.ID < b.ID
	})

	if f.Limit > 0 && len(visits) > f.Limit {
		visits = visits[:f.Limit]
	}
	return visits, nil
}

func (s *Store) SaveVisit(_ context.Context, visit *models.Visit) error {
	defer s.lock()()

	header := *visit
	header.Orders = nil

	if visit.ID == 0 {
		if _, exists := s.st.visitByUUID(visit.UUID); exists {
			return repository.ErrDuplicate
		}
		s.st.lastVID++
		header.ID = s.st.lastVID
		header.CreatedAt = now()
		header.UpdatedAt = header.CreatedAt
		s.st.visits[header.ID] = header

		visit.ID = header.ID
		visit.CreatedAt = header.CreatedAt
		visit.UpdatedAt = header.UpdatedAt
		return nil
	}

	prev, ok := s.st.visits[visit.ID]
	if !ok {
		return repository.ErrNotFound
	}
	header.CreatedAt = prev.CreatedAt
	header.UpdatedAt = now()
	s.st.visits[header.ID] = header
	visit.UpdatedAt = header.UpdatedAt
	return nil
}

func (s *Store) SaveOrderLine(_ context.Context, line *models.OrderLine) error {
	defer s.lock()()

	if _, ok := s.st.visits[line.VisitID]; !ok {
		return fmt.Errorf("order line references missing visit %d", line.VisitID)
	}

	if line.ID == 0 {
		for id, existing := range s.st.lines {
			if existing.VisitID == line.VisitID && existing.ProductItem == line.ProductItem {
				line.ID = id
				line.CreatedAt = existing.CreatedAt
				break
			}
		}
	}
	if line.ID == 0 {
		s.st.lastLine++
		line.ID = s.st.lastLine
		line.CreatedAt = now()
	}
	line.UpdatedAt = now()
	s.st.lines[line.ID] = *line
	return nil
}

func (s *Store) DeleteVisit(_ context.Context, id uint) error {
	defer s.lock()()

	if _, ok := s.st.visits[id]; !ok {
		return repository.ErrNotFound
	}
	for key, a := range s.st.answers {
		if a.VisitID == id {
			delete(s.st.answers, key)
		}
	}
	for key, l := range s.st.lines {
		if l.VisitID == id {
			delete(s.st.lines, key)
		}
	}
	delete(s.st.visits, id)
	return nil
}

// --- checklist ---

func (s *Store) ListQuestions(_ context.Context, f repository.QuestionFilter) ([]models.ChecklistQuestion, error) {
	defer s.lock()()

	var questions []models.ChecklistQuestion
	for _, q := range s.st.questions {
		if f.Active != nil && q.Active != *f.Active {
			continue
		}
		if f.ClientType != nil && q.ClientType != *f.ClientType {
			continue
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool {
		a, b := questions[i], questions[j]
		if a.ClientType != b.ClientType {
			return a.ClientType < b.ClientType
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return s.st.seq[a.UUID] < s.st.seq[b.UUID]
	})
	return questions, nil
}

func (s *Store) QuestionByUUID(_ context.Context, id string) (*models.ChecklistQuestion, error) {
	defer s.lock()()
	q, ok := s.st.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (s *Store) SaveQuestion(_ context.Context, question *models.ChecklistQuestion) error {
	defer s.lock()()

	if prev, ok := s.st.questions[question.UUID]; ok {
		question.CreatedAt = prev.CreatedAt
	} else {
		question.CreatedAt = now()
		s.st.nextSeq(question.UUID)
	}
	question.UpdatedAt = now()
	s.st.questions[question.UUID] = *question
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	defer s.lock()()

	if _, ok := s.st.questions[id]; !ok {
		return repository.ErrNotFound
	}
	for key, a := range s.st.answers {
		if a.QuestionUUID == id {
			delete(s.st.answers, key)
		}
	}
	delete(s.st.questions, id)
	return nil
}

func (s *Store) CreateAnswer(_ context.Context, answer *models.ChecklistAnswer) error {
	defer s.lock()()

	if _, ok := s.st.visits[answer.VisitID]; !ok {
		return fmt.Errorf("answer references missing visit %d", answer.VisitID)
	}
	if _, ok := s.st.questions[answer.QuestionUUID]; !ok {
		return fmt.Errorf("answer references missing question %s", answer.QuestionUUID)
	}
	for _, a := range s.st.answers {
		if a.VisitID == answer.VisitID && a.QuestionUUID == answer.QuestionUUID {
			return repository.ErrDuplicate
		}
	}
	if _, exists := s.st.answers[answer.UUID]; exists {
		return repository.ErrDuplicate
	}

	answer.CreatedAt = now()
	stored := *answer
	stored.Visit, stored.Question = nil, nil
	s.st.answers[answer.UUID] = stored
	s.st.nextSeq(answer.UUID)
	return nil
}

func (s *Store) ListAnswers(_ context.Context, f repository.AnswerFilter) ([]models.ChecklistAnswer, error) {
	defer s.lock()()

	var answers []models.ChecklistAnswer
	for _, a := range s.st.answers {
		if f.VisitUUID != nil && a.VisitUUID != *f.VisitUUID {
			continue
		}
		if f.QuestionUUID != nil && a.QuestionUUID != *f.QuestionUUID {
			continue
		}
		if f.ClientINN != nil || f.ManagerID != nil {
			v, ok := s.st.visits[a.VisitID]
			if !ok {
				continue
			}
			if f.ClientINN != nil && v.ClientINN != *f.ClientINN {
				continue
			}
			if f.ManagerID != nil && v.ManagerID != *f.ManagerID {
				continue
			}
		}
		answers = append(answers, a)
	}
	sort.Slice(answers, func(i, j int) bool {
		return s.st.seq[answers[i].UUID] < s.st.seq[answers[j].UUID]
	})
	return answers, nil
}

// --- photos ---

func (s *Store) CreatePhoto(_ context.Context, photo *models.Photo) error {
	defer s.lock()()

	if _, exists := s.st.photos[photo.UUID]; exists {
		return repository.ErrDuplicate
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = now()
	}
	s.st.photos[photo.UUID] = *photo
	s.st.nextSeq(photo.UUID)
	return nil
}

func (s *Store) ListPhotos(_ context.Context, visitUUID string) ([]models.Photo, error) {
	defer s.lock()()

	var photos []models.Photo
	for _, p := range s.st.photos {
		if p.VisitUUID == visitUUID {
			photos = append(photos, p)
		}
	}
	sort.Slice(photos, func(i, j int) bool {
		return s.st.seq[photos[i].UUID] < s.st.seq[photos[j].UUID]
	})
	return photos, nil
}

func (s *Store) PhotoByUUID(_ context.Context, id string) (*models.Photo, error) {
	defer s.lock()()
	p, ok := s.st.photos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}
