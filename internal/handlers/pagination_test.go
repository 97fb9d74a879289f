package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParsePagination_DefaultsAndBounds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotPage, gotSize int

	r.GET("/test", func(c *gin.Context) {
		gotPage, gotSize = ParsePagination(c, 1, 20, 100)
		c.Status(http.StatusOK)
	})

	// No params -> defaults
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 1, gotPage)
	assert.Equal(t, 20, gotSize)

	// Invalid -> defaults
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test?page=abc&page_size=-5", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 1, gotPage)
	assert.Equal(t, 20, gotSize)

	// Valid within bounds
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test?page=3&page_size=50", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 3, gotPage)
	assert.Equal(t, 50, gotSize)

	// Over max -> clamped
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test?page=2&page_size=5000", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, 2, gotPage)
	assert.Equal(t, 100, gotSize)
}

func TestParseFilters_OnlyNonEmptyTrimmed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var filters map[string]string

	r.GET("/filters", func(c *gin.Context) {
		filters = ParseFilters(c, "subject", "module", "extra")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/filters?subject=%20maths%20&module=&extra=%09%0A", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, map[string]string{"subject": "maths"}, filters)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name       string
		page, size int
		want       []int
		totalPages int
	}{
		{"first page", 1, 2, []int{1, 2}, 3},
		{"last partial page", 3, 2, []int{5}, 3},
		{"past the end", 4, 2, []int{}, 3},
		{"everything", 1, 10, []int{1, 2, 3, 4, 5}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, p := Paginate(items, tt.page, tt.size)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, Pagination{Page: tt.page, PageSize: tt.size, Total: 5, TotalPages: tt.totalPages}, p)
		})
	}
}

func TestWritePaginated_BuildsStandardResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/paginated", func(c *gin.Context) {
		items, pagination := Paginate([]int{1, 2, 3}, 1, 20)
		WritePaginated(c, "items", items, pagination, gin.H{"filters": gin.H{"subject": "maths"}})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/paginated", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "\"items\":[1,2,3]")
	assert.Contains(t, body, "\"totalPages\":1")
	assert.Contains(t, body, "\"filters\":")
}
