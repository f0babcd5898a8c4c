package store

import (
	"sync"

	models "yarny/internal/domain/models/story"
)

// Listener observes a published change. prev and next are never the same
// pointer.
type Listener func(prev, next *State)

// Store serializes mutations and publishes immutable snapshots.
type Store struct {
	mu        sync.Mutex
	state     *State
	listeners map[int]Listener
	nextID    int
}

// New returns a store holding the empty state.
func New() *Store {
	return &Store{state: Empty(), listeners: map[int]Listener{}}
}

// Snapshot returns the current state. Callers must not modify it.
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for every published change and returns a function
// that unregisters it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) apply(reduce func(*State) *State) *State {
	s.mu.Lock()
	prev := s.state
	next := reduce(prev)
	if next == prev {
		s.mu.Unlock()
		return next
	}
	s.state = next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
	return next
}

// UpsertEntities merges the payload. An entity that does not exist yet is
// always inserted; an existing one is replaced only when the incoming
// UpdatedAt is newer than or equal to the stored one. Merging the same
// payload twice is a no-op the second time.
func (s *Store) UpsertEntities(p *models.Payload) *State {
	if p == nil || p.Empty() {
		return s.Snapshot()
	}
	return s.apply(func(st *State) *State { return upsertEntities(st, p) })
}

// RemoveChapter deletes the chapter together with its snippets.
func (s *Store) RemoveChapter(chapterID string) *State {
	return s.apply(func(st *State) *State { return removeChapter(st, chapterID) })
}

// RemoveSnippet deletes the snippet and detaches it from its chapter.
func (s *Store) RemoveSnippet(snippetID string) *State {
	return s.apply(func(st *State) *State { return removeSnippet(st, snippetID) })
}

// RemoveChapterAndUpsert removes the chapter and merges p in one published
// change, so observers never see the intermediate state.
func (s *Store) RemoveChapterAndUpsert(chapterID string, p *models.Payload) *State {
	return s.apply(func(st *State) *State { return removeChapter(st, chapterID).With(p) })
}

// RemoveSnippetAndUpsert removes the snippet and merges p in one published
// change.
func (s *Store) RemoveSnippetAndUpsert(snippetID string, p *models.Payload) *State {
	return s.apply(func(st *State) *State { return removeSnippet(st, snippetID).With(p) })
}

// RemoveNote deletes the note and drops it from the note order.
func (s *Store) RemoveNote(noteID string) *State {
	return s.apply(func(st *State) *State { return removeNote(st, noteID) })
}

func (s *Store) SelectProject(projectID string) *State {
	return s.apply(func(st *State) *State { return selectProject(st, projectID) })
}

func (s *Store) SelectStory(storyID string) *State {
	return s.apply(func(st *State) *State { return selectStory(st, storyID) })
}

// SelectSnippet focuses a snippet and clears note focus.
func (s *Store) SelectSnippet(snippetID string) *State {
	return s.apply(func(st *State) *State { return selectSnippet(st, snippetID) })
}

// SelectNote focuses a note and clears snippet focus.
func (s *Store) SelectNote(noteID string) *State {
	return s.apply(func(st *State) *State { return selectNote(st, noteID) })
}

// Clear resets the store to the empty state.
func (s *Store) Clear() *State {
	return s.apply(func(*State) *State { return Empty() })
}
