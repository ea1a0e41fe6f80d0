package core

import (
	"strings"
)

// Command is a parsed non-SQL query in the verb:target micro-grammar,
// e.g. "READ_CSV:orders", "READ_SHEET:Sheet1:A1:C10" or "GET:/users".
// The verb prefix is matched case-insensitively; target and argument
// keep their original casing.
type Command struct {
	Verb   string
	Target string
	// Arg holds everything after the second colon (a sheet range, an
	// HTTP body, a JSON filter). Empty when absent.
	Arg string
}

// ParseCommand splits a micro-grammar query into verb, target and
// optional argument. The verb is upper-cased; an empty query or a query
// without a verb separator yields ok=false.
func ParseCommand(query string) (Command, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Command{}, false
	}

	idx := strings.Index(q, ":")
	if idx <= 0 {
		return Command{}, false
	}

	cmd := Command{Verb: strings.ToUpper(strings.TrimSpace(q[:idx]))}
	rest := q[idx+1:]

	if argIdx := strings.Index(rest, ":"); argIdx >= 0 {
		cmd.Target = strings.TrimSpace(rest[:argIdx])
		cmd.Arg = strings.TrimSpace(rest[argIdx+1:])
	} else {
		cmd.Target = strings.TrimSpace(rest)
	}

	return cmd, true
}

// ValidateCommand checks a micro-grammar query against the connector's
// declared verbs. It implements the uniform non-SQL validation rules:
// empty queries are rejected, the verb must be declared, and a target
// must be present.
func ValidateCommand(query string, verbs ...string) *ValidationResult {
	if strings.TrimSpace(query) == "" {
		return Invalid("query is empty")
	}

	cmd, ok := ParseCommand(query)
	if !ok {
		return Invalid("query must use the VERB:target form, e.g. " + exampleFor(verbs))
	}

	for _, v := range verbs {
		if strings.EqualFold(cmd.Verb, v) {
			if cmd.Target == "" {
				return Invalid(cmd.Verb + " requires a target")
			}
			return Valid()
		}
	}

	return Invalid("unsupported operation " + cmd.Verb + "; expected one of " + strings.Join(verbs, ", "))
}

func exampleFor(verbs []string) string {
	if len(verbs) == 0 {
		return "VERB:target"
	}
	return verbs[0] + ":<target>"
}
