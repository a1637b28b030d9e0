package cacheserver

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// compressMiddleware zstd-compresses JSON responses for clients that ask
// for it, reusing the compression library pkg/compression/compression.go
// wires for document payloads — here applied to admin API bodies instead.
func compressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") {
			next.ServeHTTP(w, r)
			return
		}

		enc, err := zstd.NewWriter(w)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		defer enc.Close()

		w.Header().Set("Content-Encoding", "zstd")
		w.Header().Del("Content-Length")
		next.ServeHTTP(&zstdResponseWriter{ResponseWriter: w, enc: enc}, r)
	})
}

// zstdResponseWriter streams handler output through a zstd encoder.
type zstdResponseWriter struct {
	http.ResponseWriter
	enc *zstd.Encoder
}

func (z *zstdResponseWriter) Write(b []byte) (int, error) {
	return z.enc.Write(b)
}
