package storage

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedContent is returned when an upload is not one of the
// accepted formats.
var ErrUnsupportedContent = errors.New("unsupported content type")

// Upload formats accepted by the migration pipeline.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCSV  = "text/csv"
)

// DetectContentType sniffs data and returns its MIME type, e.g.
// "text/plain; charset=utf-8".
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// SniffUpload checks that data is one of the allowed types. The declared
// content type of a request is ignored; only the bytes count.
func SniffUpload(data []byte, allowed ...string) (string, error) {
	mt := mimetype.Detect(data)
	for _, a := range allowed {
		if mt.Is(a) {
			return a, nil
		}
	}
	// Single-column CSV without a delimiter sniffs as plain text.
	if mt.Is("text/plain") {
		for _, a := range allowed {
			if a == ContentTypeCSV {
				return ContentTypeCSV, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, mt.String())
}
