package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/mprgo/internal/apperr"
	"github.com/xelth-com/mprgo/internal/services/checklist"
	"github.com/xelth-com/mprgo/internal/utils"
)

// listQuestions returns the question catalog.
// ?active= narrows by the active flag, ?clientType= by category.
func (r *Router) listQuestions(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	var active *bool
	if v := query.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.respondError(w, req, apperr.Validation("active must be a boolean"))
			return
		}
		active = &b
	}
	var clientType *string
	if v := query.Get("clientType"); v != "" {
		clientType = &v
	}

	questions, err := r.Checklist.ListQuestions(req.Context(), active, clientType)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, questions)
}

func (r *Router) getQuestion(w http.ResponseWriter, req *http.Request) {
	q, err := r.Checklist.GetQuestion(req.Context(), mux.Vars(req)["uuid"])
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// upsertQuestion replaces a question. Without a path id the body UUID is
// used, or a new one is generated.
func (r *Router) upsertQuestion(w http.ResponseWriter, req *http.Request) {
	var payload checklist.QuestionPayload
	if err := utils.DecodeJSON(req.Body, &payload); err != nil {
		r.respondError(w, req, err)
		return
	}
	q, created, err := r.Checklist.UpsertQuestion(req.Context(), caller(req), mux.Vars(req)["uuid"], payload)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondSaved(w, created, q)
}

func (r *Router) deleteQuestion(w http.ResponseWriter, req *http.Request) {
	if err := r.Checklist.DeleteQuestion(req.Context(), caller(req), mux.Vars(req)["uuid"]); err != nil {
		r.respondError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submitAnswers stores an answer batch. The response is 201 when at least
// one entry was stored; otherwise it carries the shared failure status, or
// 400 when the failures differ.
func (r *Router) submitAnswers(w http.ResponseWriter, req *http.Request) {
	result, err := r.Checklist.SubmitJSON(req.Context(), caller(req), req.Body)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondJSON(w, submitStatus(result), result)
}

func submitStatus(result checklist.SubmitResult) int {
	if len(result.Created) > 0 || len(result.Failed) == 0 {
		return http.StatusCreated
	}
	status := result.Failed[0].Status
	for _, f := range result.Failed[1:] {
		if f.Status != status {
			return http.StatusBadRequest
		}
	}
	return status
}

// queryAnswers filters answers by ?visit=, ?client= and ?question=
func (r *Router) queryAnswers(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	var q checklist.AnswerQuery
	for key, dst := range map[string]**string{"visit": &q.Visit, "client": &q.Client, "question": &q.Question} {
		if v := query.Get(key); v != "" {
			*dst = &v
		}
	}

	answers, err := r.Checklist.QueryAnswers(req.Context(), caller(req), q)
	if err != nil {
		r.respondError(w, req, err)
		return
	}
	respondList(w, answers)
}
