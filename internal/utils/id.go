package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns an opaque id of the form "<prefix>_<32 hex chars>". Remote
// entities use these; local entities keep their file-derived ids.
func NewID(prefix string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return random
	}
	return prefix + "_" + random
}
