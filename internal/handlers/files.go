package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/logging"
	"movies-db/internal/mediatypes"
	"movies-db/internal/preview"
	"movies-db/internal/streaming"
)

// errUnsupportedType marks uploads whose content type is not accepted.
var errUnsupportedType = errors.New("unsupported content type")

// upload is the file part of a multipart request.
type upload struct {
	part     *multipart.Part
	ext      string
	mimeType string
}

// readUpload returns the first file part of the request, checked against
// the wanted file type.
func readUpload(r *http.Request, want mediatypes.FileType) (*upload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, catalog.InvalidArgument("expected a multipart upload: %v", err)
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, catalog.InvalidArgument("no file in upload")
		}
		if err != nil {
			return nil, catalog.InvalidArgument("malformed multipart body: %v", err)
		}
		if part.FileName() == "" {
			continue
		}

		ext, mimeType := mediatypes.ResolveUpload(part.FileName(), part.Header.Get("Content-Type"))
		if got := mediatypes.ClassifyMimeType(mimeType); got != want {
			return nil, fmt.Errorf("%w: %q, expected %s/*", errUnsupportedType, mimeType, want)
		}
		if ext == "" {
			return nil, catalog.InvalidArgument("invalid extension in filename %q", part.FileName())
		}
		return &upload{part: part, ext: ext, mimeType: mimeType}, nil
	}
}

// storeUpload copies the upload into the slot. A failed copy leaves any
// previous blob of the same kind untouched.
func (h *Handlers) storeUpload(id catalog.ID, kind blobstore.Kind, src io.Reader) (int64, error) {
	w, err := h.store.OpenWriter(id, kind)
	if err != nil {
		return 0, err
	}
	body := &uploadReader{r: src}
	n, err := io.Copy(w, body)
	if err != nil {
		w.Abort()
		if body.err != nil {
			return n, catalog.InvalidArgument("upload interrupted: %v", body.err)
		}
		return n, catalog.Internal("write blob", err)
	}
	if err := w.Close(); err != nil {
		return n, err
	}
	return n, nil
}

// uploadReader remembers read errors so a broken client body can be told
// apart from a failing store.
type uploadReader struct {
	r   io.Reader
	err error
}

func (u *uploadReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if err != nil && err != io.EOF {
		u.err = err
	}
	return n, err
}

func writeUploadError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, errUnsupportedType) {
		logging.Debug("%s: %v", op, err)
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	writeError(w, op, err)
}

// UploadMovie stores the media file of an entry, records its file info and
// queues preview generation.
func (h *Handlers) UploadMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, "upload movie", err)
		return
	}
	op := "upload movie " + id.String()
	ctx := r.Context()

	if _, err := h.index.GetMovie(ctx, id); err != nil {
		writeError(w, op, err)
		return
	}

	up, err := readUpload(r, mediatypes.FileTypeVideo)
	if err != nil {
		writeUploadError(w, op, err)
		return
	}

	logging.Info("Uploading movie %s (%s) ...", id, up.mimeType)
	start := time.Now()
	n, err := h.storeUpload(id, blobstore.MediaData(up.ext), up.part)
	if err != nil {
		writeError(w, op, err)
		return
	}

	if err := h.index.UpdateMediaFileInfo(ctx, id, catalog.FileInfo{Extension: up.ext, MimeType: up.mimeType}); err != nil {
		writeError(w, op, err)
		return
	}
	logging.Info("Uploaded movie %s: %d bytes in %v", id, n, time.Since(start).Round(time.Millisecond))

	h.pipeline.Enqueue(preview.Job{ID: id, Ext: up.ext})
	writeJSONStatus(w, "ok")
}

// UploadPreview replaces the preview of an entry with an uploaded image.
func (h *Handlers) UploadPreview(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, "upload preview", err)
		return
	}
	op := "upload preview " + id.String()
	ctx := r.Context()

	if _, err := h.index.GetMovie(ctx, id); err != nil {
		writeError(w, op, err)
		return
	}

	up, err := readUpload(r, mediatypes.FileTypeImage)
	if err != nil {
		writeUploadError(w, op, err)
		return
	}

	if _, err := h.storeUpload(id, blobstore.PreviewData(up.ext), up.part); err != nil {
		writeError(w, op, err)
		return
	}
	if err := h.index.UpdatePreviewFileInfo(ctx, id, catalog.FileInfo{Extension: up.ext, MimeType: up.mimeType}); err != nil {
		writeError(w, op, err)
		return
	}

	logging.Info("Uploaded preview for movie %s (%s)", id, up.mimeType)
	writeJSONStatus(w, "ok")
}

// DownloadMovie streams the media file with Range support.
func (h *Handlers) DownloadMovie(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, "download movie", func(e catalog.Entry) (*catalog.FileInfo, blobstore.Kind) {
		if e.MediaInfo == nil {
			return nil, blobstore.Kind{}
		}
		return e.MediaInfo, blobstore.MediaData(e.MediaInfo.Extension)
	})
}

// DownloadPreview streams the preview image.
func (h *Handlers) DownloadPreview(w http.ResponseWriter, r *http.Request) {
	h.serveBlob(w, r, "download preview", func(e catalog.Entry) (*catalog.FileInfo, blobstore.Kind) {
		if e.PreviewInfo == nil {
			return nil, blobstore.Kind{}
		}
		return e.PreviewInfo, blobstore.PreviewData(e.PreviewInfo.Extension)
	})
}

// serveBlob answers 409 while the entry has no file info for the blob
// selected by pick.
func (h *Handlers) serveBlob(w http.ResponseWriter, r *http.Request, op string, pick func(catalog.Entry) (*catalog.FileInfo, blobstore.Kind)) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, op, err)
		return
	}
	op += " " + id.String()

	entry, err := h.index.GetMovie(r.Context(), id)
	if err != nil {
		writeError(w, op, err)
		return
	}

	info, kind := pick(entry)
	if info == nil {
		logging.Debug("%s: no file info yet", op)
		http.Error(w, fmt.Sprintf("Movie %s is not yet ready", id), http.StatusConflict)
		return
	}

	blob, err := h.store.OpenReader(id, kind)
	if err != nil {
		writeError(w, op, err)
		return
	}
	defer func() {
		if err := blob.Close(); err != nil {
			logging.Warn("failed to close %s of %s: %v", kind, id, err)
		}
	}()

	iw := streaming.NewIdleWriter(w, h.streamConfig)
	defer func() {
		if err := iw.Close(); err != nil {
			logging.Debug("%s: failed to clear write deadline: %v", op, err)
		}
	}()

	iw.Header().Set("Content-Type", info.MimeType)
	iw.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", kind.FileName()))
	http.ServeContent(iw, r, kind.FileName(), time.Time{}, blob)

	written, elapsed := iw.Stats()
	logging.Debug("%s: served %d bytes in %v", op, written, elapsed.Round(time.Millisecond))
}

// RegeneratePreview queues preview generation for an entry with media.
func (h *Handlers) RegeneratePreview(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, "regenerate preview", err)
		return
	}

	entry, err := h.index.GetMovie(r.Context(), id)
	if err != nil {
		writeError(w, "regenerate preview "+id.String(), err)
		return
	}
	if !entry.HasMedia() {
		http.Error(w, fmt.Sprintf("Movie %s is not yet ready", id), http.StatusConflict)
		return
	}

	if !h.pipeline.Enqueue(preview.Job{ID: id, Ext: entry.MediaInfo.Extension}) {
		http.Error(w, "Preview generation is shutting down", http.StatusServiceUnavailable)
		return
	}
	writeJSONResponse(w, http.StatusAccepted, map[string]interface{}{
		"status":  "queued",
		"pending": h.pipeline.Pending(),
	})
}
