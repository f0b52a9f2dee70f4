// Package mediatypes classifies uploaded files by extension and MIME type.
//
// It has no dependencies beyond the standard library so handlers and
// commands can share it without import cycles.
//
// # Uploads
//
// Movie uploads must be video/* and preview uploads image/*. Multipart
// parts do not always carry a useful Content-Type, so ResolveUpload fills
// the gaps from the filename:
//
//	ext, mimeType := mediatypes.ResolveUpload(part.FileName(), part.Header.Get("Content-Type"))
//	if mediatypes.ClassifyMimeType(mimeType) != mediatypes.FileTypeVideo {
//	    // 415 Unsupported Media Type
//	}
//
// # Extension Maps
//
// ImageExtensions, VideoExtensions and MimeTypes use lowercase extensions
// with the leading dot (".mp4"). Blob kinds store extensions without it.
package mediatypes
