package mediatypes

import (
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

// FileType represents the type of an uploaded file.
type FileType string

const (
	// FileTypeImage represents an image file (previews).
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file (movies).
	FileTypeVideo FileType = "video"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns FileTypeOther if the extension is not recognized.
func GetFileType(ext string) FileType {
	if ImageExtensions[ext] {
		return FileTypeImage
	}
	if VideoExtensions[ext] {
		return FileTypeVideo
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mimeType, ok := MimeTypes[ext]; ok {
		return mimeType
	}
	return "application/octet-stream"
}

// NormalizeMimeType strips parameters and lowercases a Content-Type
// value. It returns "" when the value cannot be parsed.
func NormalizeMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mediaType
}

// ClassifyMimeType returns the FileType of a Content-Type value by its
// top-level type: video/* or image/*.
func ClassifyMimeType(contentType string) FileType {
	mediaType := NormalizeMimeType(contentType)
	switch {
	case strings.HasPrefix(mediaType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mediaType, "image/"):
		return FileTypeImage
	default:
		return FileTypeOther
	}
}

// ExtensionFromFilename returns the lowercase extension of name without
// the leading dot, or "" when there is none.
func ExtensionFromFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	return strings.TrimPrefix(ext, ".")
}

// ExtensionForMimeType returns an extension (without dot) registered for
// mimeType, preferring the shortest, or "" when none is known.
func ExtensionForMimeType(mimeType string) string {
	mediaType := NormalizeMimeType(mimeType)
	var candidates []string
	for ext, m := range MimeTypes {
		if m == mediaType {
			candidates = append(candidates, ext)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i]) != len(candidates[j]) {
			return len(candidates[i]) < len(candidates[j])
		}
		return candidates[i] < candidates[j]
	})
	return strings.TrimPrefix(candidates[0], ".")
}

// ResolveUpload works out the extension and MIME type of an uploaded file
// from its part headers. A missing or generic Content-Type is replaced by
// the type registered for the filename's extension, and a missing
// extension by one registered for the Content-Type.
func ResolveUpload(filename, contentType string) (ext, mimeType string) {
	ext = ExtensionFromFilename(filename)
	mimeType = NormalizeMimeType(contentType)

	if mimeType == "" || mimeType == "application/octet-stream" {
		if ext != "" {
			mimeType = GetMimeType("." + ext)
		}
	}
	if ext == "" {
		ext = ExtensionForMimeType(mimeType)
	}
	return ext, mimeType
}
