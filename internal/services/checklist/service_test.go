package checklist

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository"
	"github.com/xelth-com/mprgo/internal/repository/memory"
)

const (
	visitA    = "5a1d8c8e-1f0a-4b8e-a3c4-9b0c6a7f0001"
	visitB    = "5a1d8c8e-1f0a-4b8e-a3c4-9b0c6a7f0002"
	missing   = "5a1d8c8e-1f0a-4b8e-a3c4-9b0c6a7f0099"
	question1 = "9e3f4a2b-7c6d-4e5f-8a9b-0c1d2e3f0001"
	question2 = "9e3f4a2b-7c6d-4e5f-8a9b-0c1d2e3f0002"
)

var (
	agent      = identity.Caller{Username: "ivan", Role: identity.RoleAgent, ManagerID: "M1"}
	otherAgent = identity.Caller{Username: "petr", Role: identity.RoleAgent, ManagerID: "M2"}
	office     = identity.Caller{Username: "olga", Role: identity.RoleOffice}
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	require.NoError(t, store.SaveVisit(ctx, &models.Visit{UUID: visitA, ClientINN: "111", ManagerID: "M1", AuthorID: "M1"}))
	require.NoError(t, store.SaveVisit(ctx, &models.Visit{UUID: visitB, ClientINN: "222", ManagerID: "M2", AuthorID: "M2"}))

	svc := NewService(store, zap.NewNop())
	for _, id := range []string{question1, question2} {
		_, _, err := svc.UpsertQuestion(ctx, office, id, QuestionPayload{ClientType: "retail", Text: "Shelf is stocked?", Section: "shelf"})
		require.NoError(t, err)
	}
	return svc, store
}

func TestQuestionUpsertReplacesAndVersions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	inactive := false
	q, created, err := svc.UpsertQuestion(ctx, office, question1, QuestionPayload{ClientType: "wholesale", Text: "Price tags present?", Active: &inactive})
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, 2, q.Version)
	assert.Equal(t, "wholesale", q.ClientType)
	assert.Empty(t, q.Section, "replace clears fields missing from the body")
	assert.False(t, q.Active)

	yes, no := true, false
	active, err := svc.ListQuestions(ctx, &yes, nil)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, question2, active[0].UUID)

	retired, err := svc.ListQuestions(ctx, &no, nil)
	require.NoError(t, err)
	require.Len(t, retired, 1)
	assert.Equal(t, question1, retired[0].UUID)

	all, err := svc.ListQuestions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	retail := "retail"
	byType, err := svc.ListQuestions(ctx, nil, &retail)
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

func TestQuestionUpsertGeneratesID(t *testing.T) {
	svc, _ := newService(t)

	q, created, err := svc.UpsertQuestion(context.Background(), office, "", QuestionPayload{ClientType: "retail", Text: "New?"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, q.UUID)
	assert.True(t, q.Active)
	assert.Equal(t, 1, q.Version)
}

func TestQuestionWritesRequireOffice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.UpsertQuestion(ctx, agent, question1, QuestionPayload{ClientType: "retail", Text: "x"})
	assert.True(t, apperr.Is(err, apperr.KindPermission))

	assert.True(t, apperr.Is(svc.DeleteQuestion(ctx, agent, question1), apperr.KindPermission))

	_, _, err = svc.UpsertQuestion(ctx, office, question1, QuestionPayload{ClientType: "retail"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, _, err = svc.UpsertQuestion(ctx, office, question1, QuestionPayload{UUID: question2, ClientType: "retail", Text: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGetAndDeleteQuestion(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	q, err := svc.GetQuestion(ctx, question1)
	require.NoError(t, err)
	assert.Equal(t, "Shelf is stocked?", q.Text)

	_, err = svc.GetQuestion(ctx, "bad-id")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.DeleteQuestion(ctx, office, question1))
	_, err = svc.GetQuestion(ctx, question1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(svc.DeleteQuestion(ctx, office, question1), apperr.KindNotFound))
}

func TestSubmitReportsMissingVisitPerEntry(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	result, err := svc.Submit(ctx, agent, []AnswerEntry{
		{QuestionUUID: question1, VisitUUID: visitA, Answer1: "true"},
		{QuestionUUID: question2, VisitUUID: missing, Answer1: "false"},
	})
	require.NoError(t, err)

	require.Len(t, result.Created, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.Equal(t, http.StatusBadRequest, result.Failed[0].Status)
	assert.Contains(t, result.Failed[0].Error, missing)

	answers, err := store.ListAnswers(ctx, answerFilterForQuestion(question2))
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestDuplicateAnswerIsRejected(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, agent, []AnswerEntry{{QuestionUUID: question1, VisitUUID: visitA, Answer1: "yes"}})
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := svc.Submit(ctx, agent, []AnswerEntry{{QuestionUUID: question1, VisitUUID: visitA, Answer1: "no"}})
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	require.Len(t, second.Failed, 1)
	assert.Equal(t, http.StatusConflict, second.Failed[0].Status)

	visit := visitA
	answers, err := svc.QueryAnswers(ctx, office, AnswerQuery{Visit: &visit})
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "yes", answers[0].Answer1)
}

func TestSubmitEntryValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, agent, nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	result, err := svc.Submit(ctx, agent, []AnswerEntry{
		{QuestionUUID: "nope", VisitUUID: visitA},
		{QuestionUUID: question1},
		{QuestionUUID: missing, VisitUUID: visitA},
		{QuestionUUID: question1, VisitUUID: visitB},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	require.Len(t, result.Failed, 4)
	assert.Equal(t, http.StatusBadRequest, result.Failed[0].Status)
	assert.Equal(t, http.StatusBadRequest, result.Failed[1].Status)
	assert.Equal(t, http.StatusBadRequest, result.Failed[2].Status)
	assert.Equal(t, http.StatusForbidden, result.Failed[3].Status)
}

func TestSubmitJSON(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	body := `[
		{"questionUUID":"` + question1 + `","visitUUID":"` + visitA + `","answer1":true,"answer2":"left side"},
		{"questionUUID":"` + question2 + `","visitUUID":"` + visitA + `","answer1":{"nested":1}},
		{"questionUUID":"` + question2 + `","visitUUID":"` + visitA + `","answer1":3}
	]`
	result, err := svc.SubmitJSON(ctx, agent, strings.NewReader(body))
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	assert.Equal(t, "true", result.Created[0].Answer1)
	assert.Equal(t, "left side", result.Created[0].Answer2)
	assert.Equal(t, "3", result.Created[1].Answer1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)

	_, err = svc.SubmitJSON(ctx, agent, strings.NewReader(`{"not":"an array"}`))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestQueryAnswers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, agent, []AnswerEntry{
		{QuestionUUID: question1, VisitUUID: visitA, Answer1: "yes"},
		{QuestionUUID: question2, VisitUUID: visitA},
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, otherAgent, []AnswerEntry{{QuestionUUID: question1, VisitUUID: visitB, Answer2: "note"}})
	require.NoError(t, err)

	all, err := svc.QueryAnswers(ctx, office, AnswerQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := svc.QueryAnswers(ctx, agent, AnswerQuery{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	client := "222"
	byClient, err := svc.QueryAnswers(ctx, office, AnswerQuery{Client: &client})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	assert.Equal(t, "note", byClient[0].Answer2)
	assert.Empty(t, byClient[0].Answer1)

	q := question1
	byQuestion, err := svc.QueryAnswers(ctx, office, AnswerQuery{Question: &q})
	require.NoError(t, err)
	assert.Len(t, byQuestion, 2)

	unknown := missing
	_, err = svc.QueryAnswers(ctx, office, AnswerQuery{Visit: &unknown})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	other := visitB
	_, err = svc.QueryAnswers(ctx, agent, AnswerQuery{Visit: &other})
	assert.True(t, apperr.Is(err, apperr.KindPermission))
}

func answerFilterForQuestion(id string) repository.AnswerFilter {
	return repository.AnswerFilter{QuestionUUID: &id}
}
