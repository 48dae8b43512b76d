package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"GreenBot/bot/greenbot"
	"GreenBot/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "test-key"

type fakeHandler struct {
	processes map[string]*entity.Process
	inserted  struct {
		index    int
		position string
	}
	header map[string]string
}

func newFakeHandler() *fakeHandler {
	return &fakeHandler{processes: map[string]*entity.Process{
		"p1": {ID: "p1", Title: "Onboarding", IsFinished: true, Steps: []entity.Step{{StepID: "s1", Type: entity.StepInfo, Prompt: "a", StepSequenceNumber: 1}}},
	}}
}

func (h *fakeHandler) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	if token != apiKey {
		return nil, errors.New("unknown token")
	}
	return &entity.UserAuth{Username: "admin", Token: token}, nil
}

func (h *fakeHandler) ValidateToken(token string) (string, error) {
	user, err := h.AuthenticateByToken(token)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func (h *fakeHandler) find(id string) (*entity.Process, error) {
	if id == "boom" {
		return nil, errors.New("mongo: connection refused")
	}
	p, ok := h.processes[id]
	if !ok {
		return nil, greenbot.ErrProcessNotFound
	}
	return p, nil
}

func (h *fakeHandler) ListProcesses(_ context.Context, published *bool, _ string) ([]entity.Process, error) {
	var list []entity.Process
	for _, p := range h.processes {
		if published == nil || p.IsFinished == *published {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (h *fakeHandler) GetProcess(_ context.Context, id string) (*entity.Process, error) {
	return h.find(id)
}

func (h *fakeHandler) CreateProcess(_ context.Context, header entity.ProcessHeader) (*entity.Process, error) {
	p := &entity.Process{ID: "p2", Title: header.Title}
	h.processes[p.ID] = p
	return p, nil
}

func (h *fakeHandler) DeleteProcess(_ context.Context, id string) error {
	if _, err := h.find(id); err != nil {
		return err
	}
	delete(h.processes, id)
	return nil
}

func (h *fakeHandler) PublishProcess(_ context.Context, id string) (*entity.Process, error) {
	p, err := h.find(id)
	if err != nil {
		return nil, err
	}
	p.IsFinished = true
	return p, nil
}

func (h *fakeHandler) ArchiveProcess(_ context.Context, id string) (*entity.Process, error) {
	p, err := h.find(id)
	if err != nil {
		return nil, err
	}
	p.IsFinished = false
	return p, nil
}

func (h *fakeHandler) EditHeader(_ context.Context, id string, fields map[string]string) (*entity.Process, error) {
	h.header = fields
	return h.find(id)
}

func (h *fakeHandler) AppendStep(_ context.Context, id string, step entity.Step) (*entity.Step, error) {
	if _, err := h.find(id); err != nil {
		return nil, err
	}
	if err := greenbot.ValidateStep(&step); err != nil {
		return nil, err
	}
	step.StepID = "s2"
	return &step, nil
}

func (h *fakeHandler) InsertStep(_ context.Context, id string, index int, position string, step entity.Step) (*entity.Step, error) {
	p, err := h.find(id)
	if err != nil {
		return nil, err
	}
	if index >= len(p.Steps) {
		return nil, greenbot.ErrStepIndexOutOfRange
	}
	h.inserted.index, h.inserted.position = index, position
	step.StepID = "s3"
	return &step, nil
}

func (h *fakeHandler) EditStep(_ context.Context, id, stepRef string, patch greenbot.StepPatch) (*entity.Step, error) {
	p, err := h.find(id)
	if err != nil {
		return nil, err
	}
	i := p.StepIndexByID(stepRef)
	if i < 0 {
		return nil, greenbot.ErrStepNotFound
	}
	step := p.Steps[i]
	if patch.Prompt != nil {
		step.Prompt = *patch.Prompt
	}
	return &step, nil
}

func (h *fakeHandler) GetAnswers(_ context.Context, processID, chatID string) ([]entity.Answer, error) {
	if _, err := h.find(processID); err != nil {
		return nil, err
	}
	return []entity.Answer{{ProcessID: processID, ChatID: chatID, StepID: "s1", Answer: "Alice"}}, nil
}

func (h *fakeHandler) VerifyFileURL(fileID, _, sig string) bool {
	return fileID == "f1" && sig == "good"
}

func (h *fakeHandler) DownloadFile(_ context.Context, fileID string) (string, string, io.ReadCloser, error) {
	return "cv.pdf", "application/pdf", io.NopCloser(strings.NewReader("%PDF")), nil
}

type apiResponse struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
}

func newTestRouter(h *fakeHandler) http.Handler {
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), h, nil)
}

func do(t *testing.T, router http.Handler, method, path, body string, authorized bool) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(newFakeHandler())

	rec, resp := do(t, router, http.MethodGet, "/api/v1/processes", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/processes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/processes", nil)
	req.Header.Set("X-API-Key", apiKey)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Header().Get("X-User"))
}

func TestListAndGetProcess(t *testing.T) {
	router := newTestRouter(newFakeHandler())

	rec, resp := do(t, router, http.MethodGet, "/api/v1/processes?published=true", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []entity.Process
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)

	rec, resp = do(t, router, http.MethodGet, "/api/v1/processes?published=false", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(resp.Data))

	rec, _ = do(t, router, http.MethodGet, "/api/v1/processes?published=maybe", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = do(t, router, http.MethodGet, "/api/v1/processes/p1", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var p entity.Process
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, "Onboarding", p.Title)
}

func TestErrorStatuses(t *testing.T) {
	router := newTestRouter(newFakeHandler())

	rec, resp := do(t, router, http.MethodGet, "/api/v1/processes/missing", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, greenbot.ErrProcessNotFound.Error(), resp.Message)

	rec, resp = do(t, router, http.MethodGet, "/api/v1/processes/boom", "", true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", resp.Message)

	rec, _ = do(t, router, http.MethodPatch, "/api/v1/processes/p1/steps/s9", `{"prompt":"x"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/processes/p1/steps/insert", `{"index":5,"step":{"type":"info_process","prompt":"x"}}`, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/v1/nowhere", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAndDeleteProcess(t *testing.T) {
	h := newFakeHandler()
	router := newTestRouter(h)

	rec, _ := do(t, router, http.MethodPost, "/api/v1/processes", `{"title":""}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp := do(t, router, http.MethodPost, "/api/v1/processes", `{"title":"Hiring"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p entity.Process
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, "Hiring", p.Title)

	rec, _ = do(t, router, http.MethodDelete, "/api/v1/processes/p2", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, h.processes, "p2")
}

func TestPublishArchive(t *testing.T) {
	h := newFakeHandler()
	router := newTestRouter(h)

	rec, _ := do(t, router, http.MethodPost, "/api/v1/processes/p1/archive", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, h.processes["p1"].IsFinished)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/processes/p1/publish", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.processes["p1"].IsFinished)
}

func TestEditHeader(t *testing.T) {
	h := newFakeHandler()
	router := newTestRouter(h)

	rec, _ := do(t, router, http.MethodPatch, "/api/v1/processes/p1/header", `{"title":"New","image_url":""}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"title": "New", "image_url": ""}, h.header)

	rec, _ = do(t, router, http.MethodPatch, "/api/v1/processes/p1/header", `not json`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSteps(t *testing.T) {
	h := newFakeHandler()
	router := newTestRouter(h)

	rec, resp := do(t, router, http.MethodPost, "/api/v1/processes/p1/steps", `{"type":"text_process","prompt":"Name?"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var s entity.Step
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	assert.Equal(t, "s2", s.StepID)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/processes/p1/steps", `{"prompt":"no type"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/processes/p1/steps", `{"type":"choice","prompt":"Pick"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/processes/p1/steps/insert", `{"index":0,"position":"before","step":{"type":"info_process","prompt":"x"}}`, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 0, h.inserted.index)
	assert.Equal(t, "before", h.inserted.position)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/processes/p1/steps/insert", `{"index":0,"position":"sideways","step":{"type":"info_process","prompt":"x"}}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = do(t, router, http.MethodPatch, "/api/v1/processes/p1/steps/s1", `{"prompt":"renamed"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(resp.Data, &s))
	assert.Equal(t, "renamed", s.Prompt)
}

func TestAnswers(t *testing.T) {
	router := newTestRouter(newFakeHandler())

	rec, resp := do(t, router, http.MethodGet, "/api/v1/processes/p1/answers?chat_id=c1", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var answers []entity.Answer
	require.NoError(t, json.Unmarshal(resp.Data, &answers))
	require.Len(t, answers, 1)
	assert.Equal(t, "c1", answers[0].ChatID)
}

func TestSignedFileDownload(t *testing.T) {
	router := newTestRouter(newFakeHandler())

	rec, _ := do(t, router, http.MethodGet, "/api/v1/files/f1?expires=1&sig=good", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String())

	rec, _ = do(t, router, http.MethodGet, "/api/v1/files/f1?expires=1&sig=bad", "", false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
