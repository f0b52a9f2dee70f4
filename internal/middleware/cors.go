package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// CORSConfig holds configuration for the CORS middleware
type CORSConfig struct {
	// AllowedOrigins lists the origins browsers may call the API from.
	// "*" allows any origin; an empty list disables CORS handling.
	AllowedOrigins []string
	// MaxAge is how long, in seconds, browsers may cache a preflight.
	MaxAge int
}

// DefaultCORSConfig allows any origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		MaxAge:         600,
	}
}

// corsMethods covers every method the API registers.
var corsMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPatch,
	http.MethodDelete,
}

// corsHeaders are accepted in requests on top of the CORS-safelisted ones.
var corsHeaders = []string{
	"Content-Type",
	"Range",
	"If-Range",
	"If-Modified-Since",
	RequestIDHeader,
}

// corsExposedHeaders are readable by scripts in addition to the safelisted
// response headers. Players need the range headers to seek.
var corsExposedHeaders = []string{
	"Accept-Ranges",
	"Content-Length",
	"Content-Range",
	"Content-Disposition",
	RequestIDHeader,
}

// CORS answers preflight requests and adds the Access-Control headers to
// responses for allowed origins. Preflights never reach next.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	if len(config.AllowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []handlers.CORSOption{
		handlers.AllowedOrigins(config.AllowedOrigins),
		handlers.AllowedMethods(corsMethods),
		handlers.AllowedHeaders(corsHeaders),
		handlers.ExposedHeaders(corsExposedHeaders),
	}
	if config.MaxAge > 0 {
		opts = append(opts, handlers.MaxAge(config.MaxAge))
	}
	return handlers.CORS(opts...)
}
