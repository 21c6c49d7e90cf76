package pagination

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query holds validated limit/offset parameters.
type Query struct {
	Limit  int
	Offset int
}

// FromContext extracts and validates pagination params from the request.
// A limit of 0 is rejected rather than silently returning nothing.
func FromContext(c *gin.Context) (Query, error) {
	limit, err := parseInt(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		return Query{}, fmt.Errorf("limit must be an integer")
	}
	offset, err := parseInt(c.DefaultQuery("offset", "0"))
	if err != nil {
		return Query{}, fmt.Errorf("offset must be an integer")
	}
	return New(limit, offset)
}

// New validates raw limit/offset values.
func New(limit, offset int) (Query, error) {
	if limit < 1 || limit > MaxLimit {
		return Query{}, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	}
	if offset < 0 {
		return Query{}, fmt.Errorf("offset must be >= 0")
	}
	return Query{Limit: limit, Offset: offset}, nil
}

// HasMore reports whether rows exist beyond the current page.
func (q Query) HasMore(total int64) bool {
	return int64(q.Offset+q.Limit) < total
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
