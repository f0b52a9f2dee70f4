// Package middleware provides HTTP middleware for the movies-db server.
//
// It includes:
//   - Request ids (X-Request-ID) propagated through the request context
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - CORS for browser front ends on other origins (github.com/gorilla/handlers)
//   - gzip compression of JSON and text responses
//
// main wires them as
//
//	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
//	handler := middleware.Compression(compCfg)(router)
//	handler = middleware.CORS(corsCfg)(handler)
//	handler = middleware.RequestID(middleware.Logger(logCfg)(handler))
//
// CORS answers preflights itself, so they are logged but never reach the
// router.
// Metrics is installed on the router so the matched route is known when
// the request is recorded. Downloads are timed to the first byte.
package middleware
