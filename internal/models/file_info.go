package models

import "strings"

// FileInfo is the metadata a file source supplies for a selected file.
// File contents are never stored; only image previews are kept.
type FileInfo struct {
	Name string `json:"name" msgpack:"name"`
	Size int64  `json:"size" msgpack:"size"`
	Type string `json:"type" msgpack:"type"` // Declared MIME type
}

// IsImage reports whether the declared type is in the image category.
func (f FileInfo) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.Type), "image/")
}
