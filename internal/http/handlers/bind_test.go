package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/akbidlab/internal/domain/user"
	"github.com/geocoder89/akbidlab/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter() *gin.Engine {
	r := gin.New()
	r.POST("/signup", func(ctx *gin.Context) {
		var req user.SignUpData
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	return r
}

func postBind(t *testing.T, body string) bindErrorResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}
	return resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	resp := postBind(t, `{"email":"not-an-email","name":"A"}`)

	wantRules := map[string]string{
		"email":    "email",
		"password": "required",
		"name":     "min",
		"role":     "required",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_OneOfListsChoices(t *testing.T) {
	resp := postBind(t, `{"email":"a@b.com","password":"secret1","name":"Ani","role":"root"}`)

	if len(resp.Error.Details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", resp.Error.Details.Fields)
	}
	fe := resp.Error.Details.Fields[0]
	if fe.Field != "role" || fe.Rule != "oneof" {
		t.Fatalf("unexpected field error: %+v", fe)
	}
	if fe.Message != "must be one of admin, dosen, laboran, mahasiswa, dev_super" {
		t.Fatalf("unexpected message: %q", fe.Message)
	}
}

func TestBindJSON_SyntaxAndTypeErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantJSON  string
		wantField string
	}{
		{name: "broken json", body: `{"email":`, wantJSON: "invalid_json_syntax"},
		{name: "empty body", body: ``, wantJSON: "empty_body"},
		{name: "wrong type", body: `{"email":42}`, wantJSON: "invalid_json_type", wantField: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postBind(t, tt.body)
			if resp.Error.Details.JSON != tt.wantJSON {
				t.Fatalf("details.json = %q, want %q", resp.Error.Details.JSON, tt.wantJSON)
			}
			if resp.Error.Details.Field != tt.wantField {
				t.Fatalf("details.field = %q, want %q", resp.Error.Details.Field, tt.wantField)
			}
		})
	}
}
