package http

import (
	"errors"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// errorResponseFor maps domain errors to HTMX error responses. Validation
// failures become 422s with the domain message; unknown errors stay
// opaque to the client.
func errorResponseFor(err error) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Not found")
	case errors.Is(err, core.ErrPaymentExceeds):
		return UnprocessableEntityError("Payment exceeds the remaining balance")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDueDay),
		errors.Is(err, core.ErrInvalidPerson),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidSource),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrZeroDate):
		return UnprocessableEntityError(err.Error())
	default:
		return InternalServerError("Something went wrong")
	}
}

// parsePerson reads a person form value, defaulting to the logged-in user.
func parsePerson(raw string, fallback core.Person) core.Person {
	if raw == "" {
		return fallback
	}
	return core.Person(raw)
}
