package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfiguration marks malformed generation parameters. It is the
// only recoverable error class of the simulation core and is reported at
// construction time.
var ErrInvalidConfiguration = errors.New("market: invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// validateStruct runs struct tag validation and folds failures into
// ErrInvalidConfiguration.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return invalidf("%s", strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
}
