package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func testContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		target string
		page   int
		size   int
	}{
		{"/feed", 1, 0},
		{"/feed?page=3&size=15", 3, 15},
		{"/feed?page=-1&size=abc", 1, 0},
		{"/feed?page=x&size=-5", 1, 0},
	}
	for _, tt := range tests {
		c, _ := testContext(tt.target)
		page, size := ParsePaginationParams(c)
		if page != tt.page || size != tt.size {
			t.Errorf("%s: got (%d, %d), want (%d, %d)", tt.target, page, size, tt.page, tt.size)
		}
	}
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(41, 2, 20)
	if info.TotalPages != 3 || !info.HasNext || !info.HasPrev {
		t.Errorf("info = %+v", info)
	}
	empty := NewPaginationInfo(0, 1, 20)
	if empty.TotalPages != 1 || empty.HasNext || empty.HasPrev {
		t.Errorf("empty info = %+v", empty)
	}
}

func TestParseIDParam(t *testing.T) {
	c, w := testContext("/")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	if id, ok := ParseIDParam(c, "id"); !ok || id != 42 {
		t.Errorf("ParseIDParam = %d, %v", id, ok)
	}

	c, w = testContext("/")
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	if _, ok := ParseIDParam(c, "id"); ok || w.Code != http.StatusBadRequest {
		t.Errorf("zero id accepted, status %d", w.Code)
	}
}
