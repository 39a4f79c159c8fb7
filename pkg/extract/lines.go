package extract

import (
	"bytes"
	"strings"
)

// commentSyntax describes comments of a non-Rust language for line
// classification. Rust files are classified from their syntax tree.
type commentSyntax struct {
	line       string
	blockStart string
	blockEnd   string
	quotes     string // string delimiters; comment markers inside literals are code
}

var (
	slashSyntax = commentSyntax{line: "//", blockStart: "/*", blockEnd: "*/", quotes: "\"'`"}
	hashSyntax  = commentSyntax{line: "#", quotes: `"'`}
	htmlSyntax  = commentSyntax{blockStart: "<!--", blockEnd: "-->"}
)

func syntaxOf(lang string) commentSyntax {
	switch lang {
	case "c", "cpp", "javascript", "typescript", "css", "protobuf":
		return slashSyntax
	case "toml", "python", "shell", "yaml", "makefile":
		return hashSyntax
	case "html", "markdown":
		return htmlSyntax
	}
	return commentSyntax{}
}

type lineCounts struct {
	code, comment, blank int64
}

func (c lineCounts) total() int64 { return c.code + c.comment + c.blank }

// countLines classifies every line as code, comment or blank. A line with
// any code outside a comment is code. A trailing newline does not start a
// new line. Literals do not span lines.
func countLines(src []byte, syn commentSyntax) lineCounts {
	var (
		c     lineCounts
		depth int
	)
	if len(src) == 0 {
		return c
	}
	text := string(bytes.TrimSuffix(src, []byte("\n")))
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			c.blank++
			continue
		}
		if scanLine(line, &depth, syn) {
			c.code++
		} else {
			c.comment++
		}
	}
	return c
}

// scanLine reports whether line has code outside comments, tracking the
// block comment depth across lines.
func scanLine(line string, depth *int, syn commentSyntax) bool {
	code := false
	for i := 0; i < len(line); {
		rest := line[i:]
		if *depth > 0 {
			if strings.HasPrefix(rest, syn.blockEnd) {
				*depth = 0
				i += len(syn.blockEnd)
			} else {
				i++
			}
			continue
		}
		switch {
		case syn.line != "" && strings.HasPrefix(rest, syn.line):
			return code
		case syn.blockStart != "" && strings.HasPrefix(rest, syn.blockStart):
			*depth = 1
			i += len(syn.blockStart)
		case strings.IndexByte(syn.quotes, rest[0]) >= 0:
			code = true
			i += literalLen(rest)
		default:
			if rest[0] != ' ' && rest[0] != '\t' {
				code = true
			}
			i++
		}
	}
	return code
}

// literalLen returns the length of the quoted literal at the start of s,
// or len(s) when it is not closed on this line.
func literalLen(s string) int {
	q := s[0]
	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(s)
}

// countMasked classifies lines like [countLines], given which bytes of src
// belong to comments.
func countMasked(src []byte, comment []bool) lineCounts {
	var c lineCounts
	if len(src) == 0 {
		return c
	}
	end := len(bytes.TrimSuffix(src, []byte("\n")))
	for start := 0; start <= end; {
		stop := bytes.IndexByte(src[start:end], '\n')
		if stop < 0 {
			stop = end
		} else {
			stop += start
		}
		text, code := false, false
		for i := start; i < stop && !code; i++ {
			switch src[i] {
			case ' ', '\t', '\r', '\v', '\f':
				continue
			}
			text = true
			code = !comment[i]
		}
		switch {
		case code:
			c.code++
		case text:
			c.comment++
		default:
			c.blank++
		}
		start = stop + 1
	}
	return c
}

// isBinary reports whether src looks like binary data: a NUL byte within
// the first 8000 bytes, the heuristic git uses.
func isBinary(src []byte) bool {
	n := min(len(src), 8000)
	return bytes.IndexByte(src[:n], 0) >= 0
}
