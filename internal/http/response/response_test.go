package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestErrorUsesRealStatusAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-1")

	Error(c, CodeNotFound, "Equipment not found.")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status want 404 got %d", w.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.Error != "Equipment not found." || body.RequestID != "req-1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestErrorRejectsSuccessStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, CodeOK, "boom")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Localized(CodeInternal, "error.internal", "failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("AppError should unwrap to cause")
	}
	if err.Error() != "failed: db down" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if got := Localized(CodeBadRequest, "error.bad_request", "", nil).Error(); got != "error.bad_request" {
		t.Fatalf("empty message should fall back to key, got %q", got)
	}
}

func TestLocalizedWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	appErr := Localized(CodeOK, "error.internal", "boom", nil)
	if appErr.Status != CodeInternal {
		t.Fatalf("status want 500 got %d", appErr.Status)
	}
	appErr.Write(c)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("written status want 500 got %d", w.Code)
	}
	fields := appErr.LogFields()
	if len(fields) != 8 || fields[3] != "error.internal" {
		t.Fatalf("unexpected log fields: %v", fields)
	}
}
