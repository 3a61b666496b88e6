package prompt

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/quillflow/quillflow/engine/core"
)

// File is a stored file referenced by a file token: its raw content plus any
// text extracted at upload time.
type File struct {
	ID            core.ID `json:"file_id"`
	Name          string  `json:"name"`
	MimeType      string  `json:"mime_type"`
	ExtractedText string  `json:"extracted_text,omitempty"`
	Content       []byte  `json:"content,omitempty"`
}

// Image is one image associated with a stored file (e.g. a rendered PDF page).
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// FileSource looks up files and their associated images. Implementations
// return a FILE_NOT_FOUND coded error for unknown IDs.
type FileSource interface {
	GetFile(ctx context.Context, id core.ID) (*File, error)
	GetFileImages(ctx context.Context, id core.ID) ([]Image, error)
}

// Text returns the best textual rendition of the file: extracted text when
// available, the raw content for text-like mime types, base64 otherwise.
func (f *File) Text() string {
	if f.ExtractedText != "" {
		return f.ExtractedText
	}
	if strings.HasPrefix(f.MimeType, "text/") ||
		f.MimeType == "application/json" ||
		f.MimeType == "application/javascript" {
		return string(f.Content)
	}
	if len(f.Content) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(f.Content)
}
