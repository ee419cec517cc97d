package flatten

import (
	"errors"
	"fmt"
)

// Sentinel errors for products that cannot be flattened
var (
	ErrTooManyCombinations = errors.New("too many variant combinations")
	ErrTooManyOptions      = errors.New("too many variant attributes")
	ErrOrphanChildren      = errors.New("children reference a missing parent")
	ErrDuplicateParent     = errors.New("duplicate parent id")
	ErrPanic               = errors.New("unexpected failure")
)

// ProductError reports a product that was skipped. Other products are unaffected.
type ProductError struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title,omitempty"`
	Line      int    `json:"line,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

func (e *ProductError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("product %s: %s: %v", e.ProductID, e.Message, e.Err)
	}
	return fmt.Sprintf("product %s: %s", e.ProductID, e.Message)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

func productError(id, title string, line int, err error, format string, args ...any) *ProductError {
	return &ProductError{
		ProductID: id,
		Title:     title,
		Line:      line,
		Message:   fmt.Sprintf(format, args...),
		Err:       err,
	}
}
