package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
		{"naïve", 3, "na"}, // ï is two bytes; never split it
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	errs := Validate(
		Required("url", "https://example.com"),
		WebURL("url", "https://example.com/path"),
	)
	if len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}

	errs = Validate(
		Required("reason", " "),
		WebURL("url", "javascript:alert(1)"),
	)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}
	if errs.Error() != "reason: is required" {
		t.Errorf("Error() = %q", errs.Error())
	}
}

func TestWebURL(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"", true},
		{"https://example.com", true},
		{"http://example.com:8080/a?b=c", true},
		{"example.com", false},
		{"ftp://example.com", false},
		{"chrome://settings", false},
		{"http://", false},
	}

	for _, tc := range tests {
		err := WebURL("url", tc.value)()
		if (err == nil) != tc.valid {
			t.Errorf("WebURL(%q) valid=%v, want %v", tc.value, err == nil, tc.valid)
		}
	}
}

func TestMaxLength(t *testing.T) {
	if err := MaxLength("field", "hello", 10)(); err != nil {
		t.Error("Expected no error for string under limit")
	}
	if err := MaxLength("field", "hello", 5)(); err != nil {
		t.Error("Expected no error for string at limit")
	}
	if err := MaxLength("field", "hello world", 5)(); err == nil {
		t.Error("Expected error for string over limit")
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestSizeMiddleware(8))
	router.POST("/echo", func(c *gin.Context) {
		var body struct{}
		if err := c.ShouldBindJSON(&body); err != nil {
			Abort(c, ValidationErrors{{Field: "body", Message: "too large"}})
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"padding":"xxxxxxxxxxxxxxxx"}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation_failed") {
		t.Errorf("body = %s", w.Body.String())
	}
}
