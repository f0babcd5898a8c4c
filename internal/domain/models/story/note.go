package story

// NoteKind categorizes notes. Drive projects use people/places/things; the
// local-file variant uses characters/worldbuilding.
type NoteKind string

const (
	NotePeople        NoteKind = "people"
	NotePlaces        NoteKind = "places"
	NoteThings        NoteKind = "things"
	NoteCharacters    NoteKind = "characters"
	NoteWorldbuilding NoteKind = "worldbuilding"
)

// Valid reports whether k is one of the known note kinds.
func (k NoteKind) Valid() bool {
	switch k {
	case NotePeople, NotePlaces, NoteThings, NoteCharacters, NoteWorldbuilding:
		return true
	}
	return false
}

// Note is independent of chapters and ordered within its kind only.
type Note struct {
	ID        string   `json:"id"`
	StoryID   string   `json:"storyId"`
	Kind      NoteKind `json:"kind"`
	Order     int      `json:"order"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content"`
	UpdatedAt string   `json:"updatedAt"`
}
