// Package sqlguard validates candidate SQL before it may reach the
// read-only occupancy store.
//
// The policy is deliberately blunt: exactly one statement, SELECT/WITH only,
// a tokenized keyword blocklist (so identifiers like DROPBOX pass while the
// keyword DROP does not), a hard length ceiling, and a LIMIT injected when a
// statement carries none. Validation is a pure function of its input.
package sqlguard

import (
	"fmt"
	"strings"
	"unicode"
)

// ReasonCode identifies why a statement was rejected. Codes are stable
// enumerated values so callers can branch on them for telemetry and for
// deciding whether to retry via a different route.
type ReasonCode string

const (
	ReasonEmpty          ReasonCode = "empty"
	ReasonMultiStatement ReasonCode = "multi_statement"
	ReasonNotReadOnly    ReasonCode = "not_read_only"
	ReasonBannedKeyword  ReasonCode = "banned_keyword"
	ReasonTooLong        ReasonCode = "too_long"
)

// Rejection is returned for statements that must never execute.
type Rejection struct {
	Reason ReasonCode
	Detail string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("query rejected (%s): %s", r.Reason, r.Detail)
}

// MaxStatementLen guards against pathological input.
const MaxStatementLen = 8192

// bannedKeywords are write/DDL/DCL keywords that must not appear as
// standalone tokens anywhere in the statement.
var bannedKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"create": {}, "grant": {}, "revoke": {}, "attach": {}, "detach": {},
	"copy": {}, "pragma": {}, "replace": {}, "vacuum": {}, "reindex": {},
	"truncate": {}, "call": {},
}

// Validate checks one candidate statement against the read-only policy.
//
// On success it returns the statement to execute, with a `LIMIT maxRows`
// wrapper added when the input has no LIMIT of its own. On failure it
// returns a *Rejection; rejected statements are never executed and never
// retried.
func Validate(sql string, maxRows int) (string, *Rejection) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return "", &Rejection{Reason: ReasonEmpty, Detail: "empty statement"}
	}
	if len(trimmed) > MaxStatementLen {
		return "", &Rejection{
			Reason: ReasonTooLong,
			Detail: fmt.Sprintf("statement is %d bytes, max %d", len(trimmed), MaxStatementLen),
		}
	}

	stripped := stripComments(trimmed, true)

	// A single trailing semicolon is tolerated; anything after one is a
	// second statement.
	if rest := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stripped), ";")); strings.Contains(rest, ";") {
		return "", &Rejection{Reason: ReasonMultiStatement, Detail: "statement separator found"}
	}
	stripped = strings.TrimSuffix(strings.TrimSpace(stripped), ";")

	// The executable form drops comments but keeps literals, so a trailing
	// line comment can never swallow the injected LIMIT wrapper.
	clean := strings.TrimSpace(stripComments(trimmed, false))
	clean = strings.TrimSpace(strings.TrimSuffix(clean, ";"))

	tokens := tokenize(stripped)
	if len(tokens) == 0 {
		return "", &Rejection{Reason: ReasonEmpty, Detail: "no tokens after comment stripping"}
	}

	if first := tokens[0]; first != "select" && first != "with" {
		return "", &Rejection{
			Reason: ReasonNotReadOnly,
			Detail: fmt.Sprintf("statement starts with %q, only SELECT or WITH allowed", first),
		}
	}

	for _, tok := range tokens {
		if _, banned := bannedKeywords[tok]; banned {
			return "", &Rejection{
				Reason: ReasonBannedKeyword,
				Detail: fmt.Sprintf("keyword %q is not allowed", strings.ToUpper(tok)),
			}
		}
	}

	if !hasToken(tokens, "limit") {
		return fmt.Sprintf("SELECT * FROM (%s) AS _capped LIMIT %d", clean, maxRows), nil
	}
	return clean, nil
}

// stripComments removes -- line comments and /* */ block comments. With
// blankLiterals it also blanks out string literals so quoted text never
// trips the keyword scan; without it literals pass through untouched and
// the result is the executable statement.
func stripComments(sql string, blankLiterals bool) string {
	var b strings.Builder
	b.Grow(len(sql))

	for i := 0; i < len(sql); {
		switch {
		case strings.HasPrefix(sql[i:], "--"):
			if nl := strings.IndexByte(sql[i:], '\n'); nl >= 0 {
				i += nl + 1
			} else {
				i = len(sql)
			}
			b.WriteByte(' ')
		case strings.HasPrefix(sql[i:], "/*"):
			if end := strings.Index(sql[i+2:], "*/"); end >= 0 {
				i += end + 4
			} else {
				i = len(sql)
			}
			b.WriteByte(' ')
		case sql[i] == '\'':
			// skip literal, honoring '' escapes
			j := i + 1
			for j < len(sql) {
				if sql[j] == '\'' {
					if j+1 < len(sql) && sql[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j < len(sql) {
				j++
			}
			if blankLiterals {
				b.WriteString(" '' ")
			} else {
				b.WriteString(sql[i:j])
			}
			i = j
		default:
			b.WriteByte(sql[i])
			i++
		}
	}
	return b.String()
}

// tokenize lowercases and splits on anything that cannot be part of an
// identifier, so DROPBOX stays one token and `1;DROP` splits cleanly.
func tokenize(sql string) []string {
	return strings.FieldsFunc(strings.ToLower(sql), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}
