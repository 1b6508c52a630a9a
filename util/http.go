package util

import (
	"net/http"
	"strings"
)

// locationRewriter prepends the prefix to absolute Location headers, so redirects of the wrapped handler stay below the prefix.
type locationRewriter struct {
	http.ResponseWriter
	prefix string // without trailing slash
}

func (w locationRewriter) WriteHeader(statusCode int) {
	if location := w.Header().Get("Location"); strings.HasPrefix(location, "/") && !strings.HasPrefix(location, "//") {
		w.Header().Set("Location", w.prefix+location)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

// StripPrefix is like http.StripPrefix, but also rewrites redirects. An empty prefix returns handler.
func StripPrefix(prefix string, handler http.Handler) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return handler
	}
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(locationRewriter{w, prefix}, r)
	}))
}

// HandlePrefix registers handler for all paths below prefix.
func HandlePrefix(mux *http.ServeMux, prefix string, handler http.Handler) {
	prefix = strings.TrimSuffix(prefix, "/")
	mux.Handle(prefix+"/", StripPrefix(prefix, handler)) // http mux needs trailing slash
}
