// Package handlers provides the HTTP API of the movie catalog.
//
// Movies are addressed by the id query parameter:
//   - /api/v1/movie: create (POST, answers the new id as text), read (GET),
//     partial update (PATCH) and delete (DELETE)
//   - /api/v1/movie/search and /api/v1/movie/tags: search and tag counts
//   - /api/v1/movie/file: media upload (multipart, video/*) and download
//   - /api/v1/movie/preview/file: preview upload (image/*) and download
//   - /api/v1/movie/preview: queue preview generation again
//
// Invalid arguments answer 400, unknown ids 404, and a blob requested
// before its file info is recorded 409. Internal failures are logged and
// answered with a generic 500.
//
// Downloads support Range requests and run through streaming.IdleWriter,
// so a client that stops reading is disconnected after a minute while a
// slow but steady one may take as long as it needs.
//
// Health, readiness, liveness and version endpoints sit at the root. With
// SetMemoryMonitor the health report also shows whether preview
// generation is paused for memory.
package handlers
