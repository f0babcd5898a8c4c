package story

import "time"

// ISOLayout matches the millisecond ISO-8601 form used for every UpdatedAt.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t the way UpdatedAt fields are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseTimestamp parses an UpdatedAt value. It accepts any RFC 3339 form.
func ParseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}

// Payload is a flat, by-kind grouping of entities suitable for an
// idempotent upsert into the store.
type Payload struct {
	Projects []Project `json:"projects,omitempty"`
	Stories  []Story   `json:"stories,omitempty"`
	Chapters []Chapter `json:"chapters,omitempty"`
	Snippets []Snippet `json:"snippets,omitempty"`
	Notes    []Note    `json:"notes,omitempty"`
}

// Empty reports whether the payload carries no entities at all.
func (p *Payload) Empty() bool {
	return len(p.Projects) == 0 && len(p.Stories) == 0 && len(p.Chapters) == 0 &&
		len(p.Snippets) == 0 && len(p.Notes) == 0
}
