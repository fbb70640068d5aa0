package parsers

import "strings"

// rawCall is one extracted call site: name(args), with the 1-based line of
// the call name. Args holds the raw text between the outer parentheses.
type rawCall struct {
	Name string
	Args string
	Line int
}

// scanCalls extracts parenthesized call sites from source text. It is
// quote-aware and paren-depth aware but performs no evaluation; this is the
// shared structural tokenizer for every #-commented build dialect (CMake,
// Meson, SCons, Starlark). The second result is false when the file ends
// inside an unterminated call, in which case the calls collected so far are
// still returned.
func scanCalls(src string) ([]rawCall, bool) {
	var calls []rawCall
	line := 1
	i := 0
	n := len(src)

	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == '#':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '\'' || c == '"':
			i = skipString(src, i, &line)
		case isIdentStart(c):
			start := i
			for i < n && isIdentChar(src[i]) {
				i++
			}
			name := src[start:i]
			j := i
			for j < n && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			if j >= n || src[j] != '(' {
				continue
			}
			callLine := line
			argStart := j + 1
			depth := 0
			k := j
			for k < n {
				ch := src[k]
				if ch == '\n' {
					line++
					k++
					continue
				}
				if ch == '#' {
					for k < n && src[k] != '\n' {
						k++
					}
					continue
				}
				if ch == '\'' || ch == '"' {
					k = skipString(src, k, &line)
					continue
				}
				if ch == '(' {
					depth++
				} else if ch == ')' {
					depth--
					if depth == 0 {
						calls = append(calls, rawCall{Name: name, Args: src[argStart:k], Line: callLine})
						k++
						break
					}
				}
				k++
			}
			if depth != 0 {
				return calls, false
			}
			i = k
		default:
			i++
		}
	}
	return calls, true
}

// skipString advances past a quoted string starting at src[i], honoring
// backslash escapes, and returns the index after the closing quote.
func skipString(src string, i int, line *int) int {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			*line++
		case quote:
			return i + 1
		}
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}

// splitArgs splits a raw argument string on whitespace, keeping quoted
// segments together and stripping their quotes. Commas separate arguments in
// the Python-like dialects and are treated as whitespace here.
func splitArgs(raw string) []string {
	var args []string
	var cur strings.Builder
	inArg := false

	flush := func() {
		if inArg {
			args = append(args, cur.String())
			cur.Reset()
			inArg = false
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			flush()
			i++
		case c == '\'' || c == '"':
			quote := c
			i++
			for i < len(raw) && raw[i] != quote {
				if raw[i] == '\\' && i+1 < len(raw) {
					i++
				}
				cur.WriteByte(raw[i])
				i++
			}
			i++
			inArg = true
		default:
			cur.WriteByte(c)
			inArg = true
			i++
		}
	}
	flush()
	return args
}

// stringLiterals returns the contents of every quoted string literal in raw,
// in order of appearance.
func stringLiterals(raw string) []string {
	var out []string
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '\'' || c == '"' {
			quote := c
			i++
			var sb strings.Builder
			for i < len(raw) && raw[i] != quote {
				if raw[i] == '\\' && i+1 < len(raw) {
					i++
				}
				sb.WriteByte(raw[i])
				i++
			}
			i++
			out = append(out, sb.String())
			continue
		}
		if c == '#' {
			for i < len(raw) && raw[i] != '\n' {
				i++
			}
			continue
		}
		i++
	}
	return out
}

// keywordValue extracts the raw value following `key <sep>` in a call's
// argument text, up to the end of a balanced bracket group or the next
// top-level comma. Used for Meson `dependencies: [...]` and Starlark
// `deps = [...]` style keyword arguments.
func keywordValue(raw, key string, sep byte) (string, bool) {
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c == '\'' || c == '"' {
			line := 0
			i = skipString(raw, i, &line)
			continue
		}
		if isIdentStart(c) {
			start := i
			for i < len(raw) && isIdentChar(raw[i]) {
				i++
			}
			if raw[start:i] != key {
				continue
			}
			j := i
			for j < len(raw) && (raw[j] == ' ' || raw[j] == '\t' || raw[j] == '\n') {
				j++
			}
			if j >= len(raw) || raw[j] != sep {
				continue
			}
			j++
			return scanKeywordRHS(raw, j), true
		}
		i++
	}
	return "", false
}

// scanKeywordRHS collects the value text starting at raw[j]: a balanced
// [...] or (...) group, or everything up to the next top-level comma.
func scanKeywordRHS(raw string, j int) string {
	for j < len(raw) && (raw[j] == ' ' || raw[j] == '\t' || raw[j] == '\n') {
		j++
	}
	start := j
	depth := 0
	for j < len(raw) {
		c := raw[j]
		if c == '\'' || c == '"' {
			line := 0
			j = skipString(raw, j, &line)
			continue
		}
		switch c {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
			if depth == 0 {
				return raw[start : j+1]
			}
		case ',':
			if depth == 0 {
				return raw[start:j]
			}
		}
		j++
	}
	return raw[start:]
}
