// Package ignore implements .yarnyignore matching for directory imports.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// FileName is the ignore file looked up at the import root.
const FileName = ".yarnyignore"

// Matcher is a compiled set of ignore patterns. The zero value ignores
// nothing.
type Matcher struct {
	patterns []*regexp.Regexp
}

// Nothing returns a matcher that ignores nothing.
func Nothing() *Matcher {
	return &Matcher{}
}

// Parse reads FileName from the root of fsys. A missing file is normal and
// yields a matcher that ignores nothing.
func Parse(fsys billy.Filesystem) (*Matcher, error) {
	data, err := util.ReadFile(fsys, FileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Nothing(), nil
		}
		return nil, fmt.Errorf("read %s: %w", FileName, err)
	}
	return ParsePatterns(string(data))
}

// ParsePatterns compiles newline-delimited patterns. Blank lines and lines
// starting with "#" are skipped.
func ParsePatterns(text string) (*Matcher, error) {
	m := &Matcher{}
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		re, err := compile(line)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", line, err)
		}
		m.patterns = append(m.patterns, re)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan patterns: %w", err)
	}
	return m, nil
}

// Ignored reports whether the relative path matches any pattern.
func (m *Matcher) Ignored(relPath string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	p := strings.ReplaceAll(relPath, "\\", "/")
	for _, re := range m.patterns {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// compile converts a glob to a regular expression:
//
//	*   any run of non-separator characters
//	**  any characters including separators
//	?   one non-separator character
//
// A leading "/" anchors at the root, otherwise the pattern may start at any
// segment boundary. A trailing "/" leaves the end open so everything below
// the directory matches.
func compile(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	if rest, ok := strings.CutPrefix(pattern, "/"); ok {
		b.WriteString("^")
		pattern = rest
	} else {
		b.WriteString("(^|/)")
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	if !strings.HasSuffix(pattern, "/") {
		b.WriteString("$")
	}
	return regexp.Compile(b.String())
}
