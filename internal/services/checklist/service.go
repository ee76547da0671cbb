package checklist

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/utils"
)

// Service manages the question catalog and visit answers
type Service struct {
	store repository.Store
	log   *zap.Logger
}

func NewService(store repository.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

func validateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("%s id %q is not a UUID", kind, id)
	}
	return nil
}

// --- questions ---

// ListQuestions returns the catalog, optionally narrowed by the active flag
// and by client type
func (s *Service) ListQuestions(ctx context.Context, active *bool, clientType *string) ([]models.ChecklistQuestion, error) {
	questions, err := s.store.ListQuestions(ctx, repository.QuestionFilter{Active: active, ClientType: clientType})
	if err != nil {
		return nil, apperr.Internal(err, "failed to list questions")
	}
	if questions == nil {
		questions = []models.ChecklistQuestion{}
	}
	return questions, nil
}

func (s *Service) GetQuestion(ctx context.Context, id string) (*models.ChecklistQuestion, error) {
	if err := validateID("question", id); err != nil {
		return nil, err
	}
	q, err := s.store.QuestionByUUID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("question %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load question")
	}
	return q, nil
}

// UpsertQuestion creates the question or replaces every field of an existing
// one. id may be empty, in which case the payload UUID is used or a new one
// is generated.
func (s *Service) UpsertQuestion(ctx context.Context, caller identity.Caller, id string, p QuestionPayload) (*models.ChecklistQuestion, bool, error) {
	if !caller.Role.CanManageCatalog() {
		return nil, false, apperr.Permission("role %s may not edit checklist questions", caller.Role)
	}
	if _, err := utils.Validate(p); err != nil {
		return nil, false, err
	}

	switch {
	case id == "" && p.UUID == "":
		id = uuid.NewString()
	case id == "":
		id = p.UUID
	case p.UUID != "" && p.UUID != id:
		return nil, false, apperr.Validation("body UUID %s does not match path %s", p.UUID, id)
	}
	if err := validateID("question", id); err != nil {
		return nil, false, err
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}

	var (
		question *models.ChecklistQuestion
		created  bool
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		version := 1
		existing, err := tx.QuestionByUUID(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			created = true
		case err != nil:
			return apperr.Internal(err, "failed to load question")
		default:
			version = existing.Version + 1
		}

		question = &models.ChecklistQuestion{
			UUID:       id,
			ClientType: p.ClientType,
			Text:       p.Text,
			Section:    p.Section,
			Active:     active,
			Version:    version,
		}
		if existing != nil {
			question.CreatedAt = existing.CreatedAt
		}
		if err := tx.SaveQuestion(ctx, question); err != nil {
			return apperr.Internal(err, "failed to save question")
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.log.Info("checklist question saved", zap.String("question", id), zap.Int("version", question.Version), zap.Bool("created", created))
	return question, created, nil
}

// DeleteQuestion removes the question and every answer to it
func (s *Service) DeleteQuestion(ctx context.Context, caller identity.Caller, id string) error {
	if !caller.Role.CanManageCatalog() {
		return apperr.Permission("role %s may not delete checklist questions", caller.Role)
	}
	if err := validateID("question", id); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		return tx.DeleteQuestion(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("question %s not found", id)
	}
	if err != nil {
		return apperr.Internal(err, "failed to delete question")
	}
	return nil
}

// --- answers ---

// SubmitJSON decodes a JSON array of answer entries and submits them.
// Entries that fail to decode are reported like any other failed entry.
func (s *Service) SubmitJSON(ctx context.Context, caller identity.Caller, body io.Reader) (SubmitResult, error) {
	var raw []json.RawMessage
	if err := utils.DecodeJSON(body, &raw); err != nil {
		return SubmitResult{}, err
	}

	entries := make([]AnswerEntry, len(raw))
	decodeErrs := map[int]error{}
	for i, r := range raw {
		if err := json.Unmarshal(r, &entries[i]); err != nil {
			decodeErrs[i] = apperr.Validation("invalid answer entry: %v", err)
		}
	}
	return s.submit(ctx, caller, entries, decodeErrs)
}

// Submit stores each entry independently. An entry with a bad reference or a
// duplicate (visit, question) pair fails on its own and is reported; the
// others are still stored.
func (s *Service) Submit(ctx context.Context, caller identity.Caller, entries []AnswerEntry) (SubmitResult, error) {
	return s.submit(ctx, caller, entries, nil)
}

func (s *Service) submit(ctx context.Context, caller identity.Caller, entries []AnswerEntry, decodeErrs map[int]error) (SubmitResult, error) {
	if len(entries) == 0 {
		return SubmitResult{}, apperr.Validation("answer batch is empty")
	}

	result := SubmitResult{Created: []AnswerView{}, Failed: []EntryError{}}
	for i, entry := range entries {
		err := decodeErrs[i]
		var view AnswerView
		if err == nil {
			view, err = s.submitOne(ctx, caller, entry)
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				s.log.Error("answer submission failed", zap.Int("index", i), zap.Error(err))
			}
			result.Failed = append(result.Failed, EntryError{
				Index:        i,
				VisitUUID:    entry.VisitUUID,
				QuestionUUID: entry.QuestionUUID,
				Status:       apperr.KindOf(err).StatusCode(),
				Error:        apperr.PublicMessage(err),
			})
			continue
		}
		result.Created = append(result.Created, view)
	}

	s.log.Info("checklist answers submitted",
		zap.String("caller", caller.Username),
		zap.Int("created", len(result.Created)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *Service) submitOne(ctx context.Context, caller identity.Caller, entry AnswerEntry) (AnswerView, error) {
	if _, err := utils.Validate(entry); err != nil {
		return AnswerView{}, err
	}

	var view AnswerView
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		visit, err := tx.VisitByUUID(ctx, entry.VisitUUID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Validation("visit %s does not exist", entry.VisitUUID)
		}
		if err != nil {
			return apperr.Internal(err, "failed to load visit")
		}
		if !caller.CanViewVisit(visit) {
			return apperr.Permission("visit %s belongs to another manager", entry.VisitUUID)
		}

		if _, err := tx.QuestionByUUID(ctx, entry.QuestionUUID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.Validation("question %s does not exist", entry.QuestionUUID)
			}
			return apperr.Internal(err, "failed to load question")
		}

		answer := &models.ChecklistAnswer{
			UUID:         uuid.NewString(),
			VisitID:      visit.ID,
			VisitUUID:    visit.UUID,
			QuestionUUID: entry.QuestionUUID,
			Answer1:      string(entry.Answer1),
			Answer2:      string(entry.Answer2),
			AuthorID:     caller.ExternalKey(),
		}
		if err := tx.CreateAnswer(ctx, answer); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Conflict("visit %s already has an answer to question %s", entry.VisitUUID, entry.QuestionUUID)
			}
			return apperr.Internal(err, "failed to save answer")
		}
		view = newAnswerView(answer)
		return nil
	})
	return view, err
}

// QueryAnswers returns answers by visit, client tax id and/or question.
// Agents only see answers on visits they manage.
func (s *Service) QueryAnswers(ctx context.Context, caller identity.Caller, q AnswerQuery) ([]AnswerView, error) {
	filter := repository.AnswerFilter{
		ClientINN:    q.Client,
		QuestionUUID: q.Question,
	}

	if q.Visit != nil {
		if err := validateID("visit", *q.Visit); err != nil {
			return nil, err
		}
		visit, err := s.store.VisitByUUID(ctx, *q.Visit)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Validation("visit %s does not exist", *q.Visit)
		}
		if err != nil {
			return nil, apperr.Internal(err, "failed to load visit")
		}
		if !caller.CanViewVisit(visit) {
			return nil, apperr.Permission("visit %s belongs to another manager", *q.Visit)
		}
		filter.VisitUUID = q.Visit
	}
	if q.Question != nil {
		if err := validateID("question", *q.Question); err != nil {
			return nil, err
		}
	}
	if caller.Role.OwnVisitsOnly() {
		own := caller.ExternalKey()
		filter.ManagerID = &own
	}

	answers, err := s.store.ListAnswers(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list answers")
	}

	views := make([]AnswerView, 0, len(answers))
	for i := range answers {
		views = append(views, newAnswerView(&answers[i]))
	}
	return views, nil
}
