package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is user-correctable and never touches the store.
	KindValidation
	KindNotFound
	// KindPersistence is fatal to the operation: nothing was written.
	KindPersistence
	// KindRender and KindDispatch are recorded on the already-persisted sale.
	KindRender
	KindDispatch
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	case KindRender:
		return "render"
	case KindDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// Error is a classified domain error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Msg: resource + " not found"}
}

func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

func Render(err error) *Error {
	return &Error{Kind: KindRender, Msg: "render invoice", Err: err}
}

func Dispatch(msg string, err error) *Error {
	return &Error{Kind: KindDispatch, Msg: msg, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Status maps an error to the HTTP status code it should be reported with.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindRender, KindDispatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err. Unclassified and
// persistence errors are reported generically.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}
	if e.Kind == KindPersistence {
		return "could not save, please try again"
	}
	return e.Msg
}
