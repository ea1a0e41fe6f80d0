package sqlbase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
)

// dangerousPatterns are rejected wherever they appear in a query,
// case-insensitively. This is pattern matching, not SQL parsing: a
// coarse safety net against obviously destructive statements, never an
// injection boundary. Real protection comes from parameterized values
// and identifier validation.
var dangerousPatterns = []string{
	"drop database",
	"drop schema",
	"truncate",
	"delete from",
}

// identifierPattern accepts plain or schema-qualified identifiers.
// Anything else is refused before it can reach interpolated query text.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// ValidateSQL applies the shared SQL validation rules: non-empty, leading
// keyword on the dialect's allow-list, no deny-listed substring, and the
// dialect's LIMIT/ORDER BY rule.
func ValidateSQL(query string, d Dialect) *core.ValidationResult {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return core.Invalid("query is empty")
	}

	lower := strings.ToLower(trimmed)

	keyword := leadingKeyword(lower)
	if !keywordAllowed(keyword, d.AllowedKeywords()) {
		return core.Invalid(fmt.Sprintf("query must start with one of: %s",
			strings.Join(d.AllowedKeywords(), ", ")))
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return core.Invalid(fmt.Sprintf("query contains disallowed pattern %q", pattern))
		}
	}

	if d.RequiresOrderByWithLimit() && hasLimit(lower) && !strings.Contains(lower, "order by") {
		return core.Invalid("LIMIT requires an ORDER BY clause on this backend")
	}

	return core.Valid()
}

// ValidIdentifier reports whether a table or column name is safe to
// quote and interpolate.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// EnsureLimit appends a limit clause when the query does not already
// carry one. When the dialect demands ORDER BY alongside LIMIT and the
// query has none, a deterministic ORDER BY 1 is added first.
func EnsureLimit(query string, limit int, d Dialect) string {
	if limit < 0 {
		limit = 0
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	lower := strings.ToLower(trimmed)

	if hasLimit(lower) {
		return trimmed
	}

	if d.RequiresOrderByWithLimit() && !strings.Contains(lower, "order by") {
		trimmed += " ORDER BY 1"
	}

	return fmt.Sprintf("%s LIMIT %d", trimmed, limit)
}

func leadingKeyword(lowerQuery string) string {
	fields := strings.Fields(lowerQuery)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func keywordAllowed(keyword string, allowed []string) bool {
	for _, k := range allowed {
		if keyword == k {
			return true
		}
	}
	return false
}

// hasLimit detects a LIMIT keyword as its own word, so column names like
// rate_limit do not trip it.
var limitPattern = regexp.MustCompile(`(^|\s)limit\s+\d+`)

func hasLimit(lowerQuery string) bool {
	return limitPattern.MatchString(lowerQuery)
}
