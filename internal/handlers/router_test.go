package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xelth-com/mprgo/internal/identity"
	"github.com/xelth-com/mprgo/internal/models"
	"github.com/xelth-com/mprgo/internal/repository/memory"
	"github.com/xelth-com/mprgo/internal/services/catalog"
	"github.com/xelth-com/mprgo/internal/services/checklist"
	"github.com/xelth-com/mprgo/internal/services/photos"
	"github.com/xelth-com/mprgo/internal/services/visits"
	"github.com/xelth-com/mprgo/internal/utils"
	"github.com/xelth-com/mprgo/internal/websocket"
)

const (
	testSecret = "test-secret"
	visitID    = "0b7c6f3e-2d1a-4c5b-9e8f-7a6b5c4d0001"
	password   = "correct-horse"
)

type testServer struct {
	*httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()

	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	m1, m2 := "M1", "M2"
	for _, u := range []*models.UserAuth{
		{Username: "ivan", Password: hash, Role: "MPR", ManagerID: &m1, IsActive: true},
		{Username: "petr", Password: hash, Role: "MPR", ManagerID: &m2, IsActive: true},
		{Username: "olga", Password: hash, Role: "OFFICE", IsActive: true},
		{Username: "gone", Password: hash, Role: "OFFICE", IsActive: false},
	} {
		require.NoError(t, store.CreateUser(context.Background(), u))
	}

	blobs, err := photos.NewFSStore(t.TempDir())
	require.NoError(t, err)

	resolver := identity.NewResolver(store, nil, log)
	visitSvc := visits.NewService(store, resolver, nil, log)
	router := NewRouter(Deps{
		Store:     store,
		Resolver:  resolver,
		Visits:    visitSvc,
		Checklist: checklist.NewService(store, log),
		Photos:    photos.NewService(store, visitSvc, blobs, log),
		Catalog:   catalog.NewService(store, log),
		Hub:       websocket.NewHub(log),
		JWTSecret: testSecret,
		Log:       log,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store}
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	resp := s.do(t, "", http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tokens map[string]string `json:"tokens"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Tokens["accessToken"])
	return body.Tokens["accessToken"]
}

func (s *testServer) do(t *testing.T, token, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, "", http.MethodPost, "/auth/login", map[string]string{"username": "ivan", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = srv.do(t, "", http.MethodPost, "/auth/login", map[string]string{"username": "gone", "password": password})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = srv.do(t, "", http.MethodPost, "/auth/login", map[string]string{"username": "ivan"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	token := srv.login(t, "ivan")
	resp = srv.do(t, token, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me identity.Caller
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, identity.RoleAgent, me.Role)
	assert.Equal(t, "M1", me.ManagerID)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, "", http.MethodGet, "/visits", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, errorMessage(t, resp))

	resp = srv.do(t, "not-a-jwt", http.MethodGet, "/visits", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterIsOfficeOnly(t *testing.T) {
	srv := newTestServer(t)
	body := map[string]string{"username": "anna", "password": "long-enough", "role": "MPR", "managerID": "M3"}

	resp := srv.do(t, srv.login(t, "ivan"), http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	office := srv.login(t, "olga")
	resp = srv.do(t, office, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, office, http.MethodPost, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = srv.do(t, office, http.MethodPost, "/auth/register", map[string]string{"username": "boris", "password": "long-enough", "role": "MPR"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	srv.login(t, "anna")
}

func TestVisitLifecycle(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.login(t, "ivan")
	other := srv.login(t, "petr")
	office := srv.login(t, "olga")

	resp := srv.do(t, agent, http.MethodGet, "/visits", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	body := map[string]any{
		"clientINN": "7701000001",
		"date":      "2026-03-02",
		"orders":    []map[string]any{{"productItem": "A-1", "order": 5}},
	}
	resp = srv.do(t, agent, http.MethodPut, "/visits/"+visitID, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view visits.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "M1", view.ManagerID)
	require.Len(t, view.Orders, 1)

	resp = srv.do(t, agent, http.MethodPut, "/visits/"+visitID, map[string]any{"orders": []map[string]any{{"productItem": "A-1", "delivered": 2}}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, other, http.MethodGet, "/visits/"+visitID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, office, http.MethodGet, "/visits?clientINN=7701000001", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []visits.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Orders[0].Order)
	assert.Equal(t, 2, list[0].Orders[0].Delivered)

	resp = srv.do(t, agent, http.MethodGet, "/visits/"+visitID+"/sheet", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	resp = srv.do(t, agent, http.MethodDelete, "/visits/"+visitID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, office, http.MethodDelete, "/visits/"+visitID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = srv.do(t, office, http.MethodGet, "/visits/"+visitID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVisitBadRequests(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.login(t, "ivan")

	resp := srv.do(t, agent, http.MethodPut, "/visits/not-a-uuid", map[string]any{"clientINN": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, agent, http.MethodPut, "/visits/"+visitID, map[string]any{"date": "02.03.2026", "clientINN": "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, agent, http.MethodGet, "/visits?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChecklistOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.login(t, "ivan")
	office := srv.login(t, "olga")

	resp := srv.do(t, agent, http.MethodPut, "/visits/"+visitID, map[string]any{"clientINN": "7701000001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, office, http.MethodPut, "/checklistsquestions", map[string]any{"clientType": "retail", "text": "Shelf stocked?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var q models.ChecklistQuestion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))

	entries := []map[string]any{{"questionUUID": q.UUID, "visitUUID": visitID, "answer1": true}}
	resp = srv.do(t, agent, http.MethodPost, "/checklistanswers", entries)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, agent, http.MethodPost, "/checklistanswers", entries)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = srv.do(t, office, http.MethodGet, "/checklistanswers?visit="+visitID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var answers []checklist.AnswerView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answers))
	require.Len(t, answers, 1)
	assert.Equal(t, "true", answers[0].Answer1)

	resp = srv.do(t, office, http.MethodDelete, "/checklistsquestions/"+q.UUID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = srv.do(t, office, http.MethodGet, "/checklistanswers?visit="+visitID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestQuestionListActiveFilter(t *testing.T) {
	srv := newTestServer(t)
	office := srv.login(t, "olga")

	resp := srv.do(t, office, http.MethodPut, "/checklistsquestions", map[string]any{"clientType": "retail", "text": "Shelf stocked?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = srv.do(t, office, http.MethodPut, "/checklistsquestions", map[string]any{"clientType": "retail", "text": "Old poster?", "active": false})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	count := func(query string) int {
		resp := srv.do(t, srv.login(t, "ivan"), http.MethodGet, "/checklistsquestions"+query, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var questions []models.ChecklistQuestion
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&questions))
		return len(questions)
	}
	assert.Equal(t, 2, count(""))
	assert.Equal(t, 1, count("?active=true"))
	assert.Equal(t, 1, count("?active=false"))

	resp = srv.do(t, office, http.MethodGet, "/checklistsquestions?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCatalogWritesAreOfficeOnly(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.login(t, "ivan")
	office := srv.login(t, "olga")

	client := map[string]any{"name": "Shop on the corner", "managerID": "M1"}
	resp := srv.do(t, agent, http.MethodPut, "/clients/7701000001", client)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, office, http.MethodPut, "/clients/7701000001", client)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = srv.do(t, office, http.MethodPut, "/clients/7701000001", client)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, agent, http.MethodGet, "/clients/7701000001", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = srv.do(t, office, http.MethodPut, "/prices", []map[string]any{{"productItem": "A-1", "priceType": "base", "value": 10.5}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var replaced map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&replaced))
	assert.Equal(t, 1, replaced["updated"])

	resp = srv.do(t, agent, http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPhotoUploadAndDownload(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.login(t, "ivan")

	resp := srv.do(t, agent, http.MethodPut, "/visits/"+visitID, map[string]any{"clientINN": "7701000001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/photos/"+visitID, bytes.NewReader([]byte("not really an image")))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+agent)
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var photo models.Photo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&photo))

	resp = srv.do(t, agent, http.MethodGet, "/photos/"+visitID+"/"+photo.UUID+"?size=thumb", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "not really an image", string(data))

	resp = srv.do(t, srv.login(t, "petr"), http.MethodGet, "/photos/"+visitID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPhotoUploadTooLarge(t *testing.T) {
	srv := newTestServer(t)
	agent := srv.login(t, "ivan")

	resp := srv.do(t, agent, http.MethodPut, "/visits/"+visitID, map[string]any{"clientINN": "7701000001"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/photos/"+visitID, bytes.NewReader(make([]byte, photos.MaxUploadSize+1)))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+agent)
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = srv.do(t, agent, http.MethodGet, "/photos/"+visitID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.Photo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
}

func TestSyncWithoutGateway(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.do(t, srv.login(t, "ivan"), http.MethodPost, "/sync/accounting", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = srv.do(t, srv.login(t, "olga"), http.MethodPost, "/sync/accounting", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTasksAreNotImplemented(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.do(t, srv.login(t, "olga"), http.MethodGet, "/tasks/123", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestSubmitStatus(t *testing.T) {
	assert.Equal(t, http.StatusCreated, submitStatus(checklist.SubmitResult{Created: []checklist.AnswerView{{}}, Failed: []checklist.EntryError{{Status: 400}}}))
	assert.Equal(t, http.StatusForbidden, submitStatus(checklist.SubmitResult{Failed: []checklist.EntryError{{Status: 403}, {Status: 403}}}))
	assert.Equal(t, http.StatusBadRequest, submitStatus(checklist.SubmitResult{Failed: []checklist.EntryError{{Status: 403}, {Status: 409}}}))
}
