package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers wrap to pick a status code.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrValidation  = errors.New("validation failed")
	ErrUnavailable = errors.New("service unavailable")
)

// ParamError names the query or form parameter that failed validation.
type ParamError struct {
	Param string
}

// InvalidParam reports a bad request parameter. The error matches
// ErrValidation.
func InvalidParam(name string) error {
	return &ParamError{Param: name}
}

func (e *ParamError) Error() string { return "invalid parameter: " + e.Param }

func (e *ParamError) Unwrap() error { return ErrValidation }

// RespondError maps wrapped sentinel errors to RFC7807 responses. Unknown
// errors become a 500 without detail.
func RespondError(w http.ResponseWriter, err error) {
	var param *ParamError
	switch {
	case errors.As(err, &param):
		writeProblem(w, ProblemDetail{
			Title:         "Validation Failed",
			Status:        http.StatusBadRequest,
			Detail:        param.Error(),
			InvalidParams: []string{param.Param},
		})
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
