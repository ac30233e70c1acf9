package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Notifuse/mailblocks/internal/domain"
	"github.com/Notifuse/mailblocks/internal/domain/mocks"
	apphttp "github.com/Notifuse/mailblocks/internal/http"
	"github.com/Notifuse/mailblocks/pkg/blocks"
	"github.com/Notifuse/mailblocks/pkg/logger"
)

const (
	testToken      = "test-token"
	testTemplateID = "0b9c8d7e-6f5a-4b3c-9d2e-1f0a9b8c7d6e"
)

var testUser = &domain.User{ID: "user-1", Email: "user@example.com"}

func setupTemplateHandlerTest(t *testing.T) (*mocks.MockTemplateService, *http.ServeMux) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockService := mocks.NewMockTemplateService(ctrl)
	authService := mocks.NewMockAuthService(ctrl)
	authService.EXPECT().VerifyToken(testToken).Return(testUser, nil).AnyTimes()
	authService.EXPECT().VerifyToken(gomock.Not(testToken)).Return(nil, domain.ErrUnauthorized).AnyTimes()

	handler := apphttp.NewTemplateHandler(mockService, authService, logger.NewTestLogger(t))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mockService, mux
}

// sendRequest serves one request through mux. Strings are sent as raw bodies.
func sendRequest(t *testing.T, mux *http.ServeMux, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTemplateHandler_List(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	t.Run("requires auth", func(t *testing.T) {
		w := sendRequest(t, mux, http.MethodGet, "/api/templates.list", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := sendRequest(t, mux, http.MethodGet, "/api/templates.list", "forged", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := sendRequest(t, mux, http.MethodPost, "/api/templates.list", testToken, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("bad query", func(t *testing.T) {
		w := sendRequest(t, mux, http.MethodGet, "/api/templates.list?include_public=maybe", testToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success", func(t *testing.T) {
		mockService.EXPECT().ListTemplates(gomock.Any(), true).Return([]*domain.Template{
			{ID: testTemplateID, Name: "Welcome", UserID: testUser.ID},
		}, nil)

		w := sendRequest(t, mux, http.MethodGet, "/api/templates.list?include_public=true", testToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Len(t, body["templates"], 1)
	})

	t.Run("service error", func(t *testing.T) {
		mockService.EXPECT().ListTemplates(gomock.Any(), false).Return(nil, errors.New("db down"))

		w := sendRequest(t, mux, http.MethodGet, "/api/templates.list", testToken, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to list templates", decodeBody(t, w)["error"])
	})
}

func TestTemplateHandler_Get(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	tests := []struct {
		name       string
		query      string
		setup      func()
		wantStatus int
	}{
		{name: "missing id", query: "", wantStatus: http.StatusBadRequest},
		{
			name:  "found",
			query: "?id=" + testTemplateID,
			setup: func() {
				mockService.EXPECT().GetTemplate(gomock.Any(), testTemplateID).Return(&domain.Template{ID: testTemplateID, Name: "Welcome"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "not found",
			query: "?id=" + testTemplateID,
			setup: func() {
				mockService.EXPECT().GetTemplate(gomock.Any(), testTemplateID).Return(nil, &domain.ErrTemplateNotFound{Message: "template not found"})
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			w := sendRequest(t, mux, http.MethodGet, "/api/templates.get"+tt.query, testToken, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestTemplateHandler_Save(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	content := json.RawMessage(`[{"id":"b1","type":"text","props":{"text":"Hi"}}]`)

	t.Run("invalid json", func(t *testing.T) {
		w := sendRequest(t, mux, http.MethodPost, "/api/templates.save", testToken, "{")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, w)["error"])
	})

	t.Run("invalid content", func(t *testing.T) {
		w := sendRequest(t, mux, http.MethodPost, "/api/templates.save", testToken, map[string]interface{}{
			"name":    "Welcome",
			"content": map[string]string{"id": "b1"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "blocks must be an array")
	})

	t.Run("create", func(t *testing.T) {
		mockService.EXPECT().SaveTemplate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ interface{}, tpl *domain.Template) (*domain.Template, error) {
			assert.Equal(t, "Welcome", tpl.Name)
			assert.Len(t, tpl.Content, 1)
			saved := *tpl
			saved.ID = testTemplateID
			return &saved, nil
		})

		w := sendRequest(t, mux, http.MethodPost, "/api/templates.save", testToken, domain.SaveTemplateRequest{Name: "Welcome", Content: content})
		require.Equal(t, http.StatusCreated, w.Code)
		tpl := decodeBody(t, w)["template"].(map[string]interface{})
		assert.Equal(t, testTemplateID, tpl["id"])
	})

	t.Run("update", func(t *testing.T) {
		mockService.EXPECT().SaveTemplate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ interface{}, tpl *domain.Template) (*domain.Template, error) {
			return tpl, nil
		})

		w := sendRequest(t, mux, http.MethodPost, "/api/templates.save", testToken, domain.SaveTemplateRequest{ID: testTemplateID, Name: "Welcome", Content: content})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forbidden", func(t *testing.T) {
		mockService.EXPECT().SaveTemplate(gomock.Any(), gomock.Any()).Return(nil, domain.NewPermissionError("template belongs to another user"))

		w := sendRequest(t, mux, http.MethodPost, "/api/templates.save", testToken, domain.SaveTemplateRequest{ID: testTemplateID, Name: "Welcome", Content: content})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTemplateHandler_Delete(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	w := sendRequest(t, mux, http.MethodPost, "/api/templates.delete", testToken, map[string]string{"id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.EXPECT().DeleteTemplate(gomock.Any(), testTemplateID).Return(nil)
	w = sendRequest(t, mux, http.MethodPost, "/api/templates.delete", testToken, map[string]string{"id": testTemplateID})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decodeBody(t, w)["status"])
}

func TestTemplateHandler_Export(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	req := map[string]interface{}{
		"blocks": []map[string]interface{}{{"id": "b1", "type": "divider", "props": map[string]interface{}{}}},
	}

	t.Run("json", func(t *testing.T) {
		mockService.EXPECT().ExportTemplate(gomock.Any(), gomock.Any()).DoAndReturn(func(_ interface{}, r domain.ExportTemplateRequest) (*domain.ExportResult, error) {
			assert.NotEmpty(t, r.Blocks)
			return &domain.ExportResult{HTML: "<p>x</p>", Text: "x"}, nil
		})

		w := sendRequest(t, mux, http.MethodPost, "/api/templates.export", testToken, req)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "<p>x</p>", body["html"])
		assert.Equal(t, "x", body["text"])
	})

	t.Run("raw html", func(t *testing.T) {
		mockService.EXPECT().ExportTemplate(gomock.Any(), gomock.Any()).Return(&domain.ExportResult{HTML: "<!DOCTYPE html>"}, nil)

		w := sendRequest(t, mux, http.MethodPost, "/api/templates.export?format=html", testToken, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "<!DOCTYPE html>", w.Body.String())
	})

	t.Run("validation error", func(t *testing.T) {
		mockService.EXPECT().ExportTemplate(gomock.Any(), gomock.Any()).Return(nil, domain.NewValidationError("invalid export request: template_id or blocks is required"))

		w := sendRequest(t, mux, http.MethodPost, "/api/templates.export", testToken, map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeBody(t, w)["error"], "template_id or blocks is required")
	})
}

func TestTemplateHandler_Compile(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	mockService.EXPECT().CompileTemplate(gomock.Any(), gomock.Any()).Return(&domain.CompileTemplateResponse{MJML: "<mjml></mjml>", HTML: "<html></html>"}, nil)
	w := sendRequest(t, mux, http.MethodPost, "/api/templates.compile", testToken, map[string]string{"template_id": testTemplateID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<mjml></mjml>", decodeBody(t, w)["mjml"])

	mockService.EXPECT().CompileTemplate(gomock.Any(), gomock.Any()).Return(nil, errors.New("node crashed"))
	w = sendRequest(t, mux, http.MethodPost, "/api/templates.compile", testToken, map[string]string{"template_id": testTemplateID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTemplateHandler_SendTest(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	mockService.EXPECT().SendTestEmail(gomock.Any(), domain.SendTestEmailRequest{TemplateID: testTemplateID, Email: "qa@example.com"}).Return(nil)
	w := sendRequest(t, mux, http.MethodPost, "/api/templates.sendTest", testToken, map[string]string{"template_id": testTemplateID, "email": "qa@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sent", decodeBody(t, w)["status"])
}

func TestTemplateHandler_ValidationFields(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	mockService.EXPECT().ExportTemplate(gomock.Any(), gomock.Any()).Return(nil, domain.ValidationError{
		Message: "invalid block",
		Fields:  map[string]string{"height": "must be a number followed by px, %, rem or em"},
	})

	w := sendRequest(t, mux, http.MethodPost, "/api/templates.export", testToken, map[string]interface{}{
		"blocks": []blocks.Block{{ID: "s", Type: blocks.TypeSpacer}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "invalid block", body["error"])
	assert.Contains(t, body["fields"], "height")
}

func TestTemplateHandler_RateLimited(t *testing.T) {
	mockService, mux := setupTemplateHandlerTest(t)

	mockService.EXPECT().SendTestEmail(gomock.Any(), gomock.Any()).Return(&domain.RateLimitError{Message: "too many requests", RetryAfter: 1500 * time.Millisecond})

	w := sendRequest(t, mux, http.MethodPost, "/api/templates.sendTest", testToken, map[string]string{"template_id": testTemplateID, "email": "qa@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}
