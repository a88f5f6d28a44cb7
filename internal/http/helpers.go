package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// parseMonthKey extracts the month from ?year=&month= query parameters.
// Missing or invalid values fall back to the current month.
func parseMonthKey(r *http.Request, now time.Time) core.MonthKey {
	return ParseMonthValues(r.URL.Query(), now)
}

// parseDate parses a date string in YYYY-MM-DD format as midnight UTC.
func parseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// formatDollars renders an amount as a dollar string (e.g. "$12.34").
func formatDollars(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + core.FormatAmount(d.Neg())
	}
	return "$" + core.FormatAmount(d)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
