package converter

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the optional YAML header of an imported markdown file.
type FrontMatter struct {
	Title string `yaml:"title,omitempty"`
	Order *int   `yaml:"order,omitempty"`
}

var fmDelimiter = []byte("---")

// SplitFrontMatter separates a leading "---" YAML block from the body. Input
// without a header is returned unchanged with an empty FrontMatter. A header
// that does not parse is an error; the body is still returned.
func SplitFrontMatter(content []byte) (FrontMatter, []byte, error) {
	var fm FrontMatter
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, append(fmDelimiter, '\n')) {
		return fm, content, nil
	}

	rest := normalized[len(fmDelimiter)+1:]
	var header, body []byte
	if bytes.HasPrefix(rest, append(fmDelimiter, '\n')) || bytes.Equal(rest, fmDelimiter) {
		header, body = nil, bytes.TrimPrefix(rest[len(fmDelimiter):], []byte("\n"))
	} else {
		end := bytes.Index(rest, []byte("\n---"))
		if end < 0 {
			return fm, content, nil
		}
		header = rest[:end]
		body = rest[end+len("\n---"):]
		if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
			if len(bytes.TrimSpace(body[:nl])) != 0 {
				return fm, content, nil
			}
			body = body[nl+1:]
		} else if len(bytes.TrimSpace(body)) != 0 {
			return fm, content, nil
		} else {
			body = nil
		}
	}

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return FrontMatter{}, body, fmt.Errorf("parse front matter: %w", err)
	}
	return fm, body, nil
}

// JoinFrontMatter prepends fm as a YAML header. An empty fm leaves body
// unchanged.
func JoinFrontMatter(fm FrontMatter, body []byte) ([]byte, error) {
	if fm.Title == "" && fm.Order == nil {
		return body, nil
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(fmDelimiter)
	buf.WriteByte('\n')
	buf.Write(header)
	buf.Write(fmDelimiter)
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes(), nil
}
