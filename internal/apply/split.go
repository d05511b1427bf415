package apply

import "strings"

// splitStatements breaks a migration script into executable statements.
// Terminators inside quoted literals or line comments do not split, and
// comment-only or blank fragments are dropped entirely.
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder
	var inSingle, inDouble, inBacktick, inLineComment bool

	for i := 0; i < len(script); i++ {
		ch := script[i]

		switch {
		case inLineComment:
			current.WriteByte(ch)
			if ch == '\n' {
				inLineComment = false
			}
		case inSingle:
			current.WriteByte(ch)
			if ch == '\'' {
				inSingle = false
			}
		case inDouble:
			current.WriteByte(ch)
			if ch == '"' {
				inDouble = false
			}
		case inBacktick:
			current.WriteByte(ch)
			if ch == '`' {
				inBacktick = false
			}
		default:
			switch ch {
			case '-':
				if i+1 < len(script) && script[i+1] == '-' {
					inLineComment = true
				}
				current.WriteByte(ch)
			case '\'':
				inSingle = true
				current.WriteByte(ch)
			case '"':
				inDouble = true
				current.WriteByte(ch)
			case '`':
				inBacktick = true
				current.WriteByte(ch)
			case ';':
				statements = appendStatement(statements, current.String())
				current.Reset()
			default:
				current.WriteByte(ch)
			}
		}
	}

	return appendStatement(statements, current.String())
}

func appendStatement(statements []string, raw string) []string {
	stmt := stripCommentLines(raw)
	if stmt == "" {
		return statements
	}
	return append(statements, stmt)
}

// stripCommentLines removes full-line comments and blank lines from a
// statement fragment. Inline trailing comments are left alone.
func stripCommentLines(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
