package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// ParseMonthValues extracts a month key from year/month values, using the
// given time as the default. Handlers use it for both query strings and
// form bodies.
func ParseMonthValues(values url.Values, now time.Time) core.MonthKey {
	year := now.Year()
	month := int(now.Month())

	if v := strings.TrimSpace(values.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(values.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return core.NewMonthKey(year, month)
}

// RequireMethod returns an error response when the request method is not
// one of the given methods, nil otherwise.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST guards POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireDeleteOrPOST guards delete handlers, which also accept POST
// because HTML forms cannot send DELETE.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form, returning an error response
// on malformed bodies and nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
