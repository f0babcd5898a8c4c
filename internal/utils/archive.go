package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// ArchiveEntry is one file of a zip archive. Name uses forward slashes.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// CreateZip packs entries in order, stamping each with modified.
func CreateZip(entries []ArchiveEntry, modified time.Time) (*bytes.Buffer, error) {
	zipBuffer := new(bytes.Buffer)
	zipWriter := zip.NewWriter(zipBuffer)

	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: modified,
		}
		w, err := zipWriter.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write %s: %w", entry.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return zipBuffer, nil
}
