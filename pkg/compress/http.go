package compress

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// DefaultMinSize is the smallest response body worth encoding.
const DefaultMinSize = 256

// ErrUnsupportedEncoding is returned for request bodies whose
// Content-Encoding cannot be decoded.
var ErrUnsupportedEncoding = errors.New("unsupported content encoding")

// Negotiate picks a response encoding from an Accept-Encoding header.
// zstd is preferred over gzip at equal quality; q=0 excludes a coding.
func Negotiate(acceptEncoding string) Algorithm {
	best, bestQ := AlgorithmNone, 0.0
	for _, part := range strings.Split(acceptEncoding, ",") {
		token, q := parseCoding(part)
		var alg Algorithm
		switch token {
		case "zstd":
			alg = AlgorithmZSTD
		case "gzip", "x-gzip":
			alg = AlgorithmGzip
		case "*":
			alg = AlgorithmZSTD
		default:
			continue
		}
		if q > bestQ || (q == bestQ && q > 0 && alg == AlgorithmZSTD) {
			best, bestQ = alg, q
		}
	}
	return best
}

func parseCoding(part string) (string, float64) {
	fields := strings.Split(part, ";")
	token := strings.ToLower(strings.TrimSpace(fields[0]))
	q := 1.0
	for _, param := range fields[1:] {
		name, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || strings.ToLower(name) != "q" {
			continue
		}
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			q = v
		}
	}
	return token, q
}

// Middleware encodes responses according to the request's Accept-Encoding.
type Middleware struct {
	minSize     int
	compressors map[Algorithm]*Compressor
}

// NewMiddleware creates a response-encoding middleware. Bodies shorter
// than minSize are sent as-is; minSize <= 0 uses DefaultMinSize.
func NewMiddleware(level Level, minSize int) *Middleware {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Middleware{
		minSize: minSize,
		compressors: map[Algorithm]*Compressor{
			AlgorithmZSTD: NewCompressor(AlgorithmZSTD, level),
			AlgorithmGzip: NewCompressor(AlgorithmGzip, level),
		},
	}
}

// Handler wraps next. The response is buffered so the encoding decision
// can depend on the final body size.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")

		alg := Negotiate(r.Header.Get("Accept-Encoding"))
		if alg == AlgorithmNone || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		bw := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(bw, r)

		body := bw.buf.Bytes()
		if len(body) >= m.minSize && w.Header().Get("Content-Encoding") == "" {
			if encoded, err := m.compressors[alg].Compress(body); err == nil {
				w.Header().Set("Content-Encoding", string(alg))
				body = encoded
			}
		}
		w.Header().Del("Content-Length")
		w.WriteHeader(bw.status)
		_, _ = w.Write(body)
	})
}

type bufferedWriter struct {
	http.ResponseWriter
	buf         bytes.Buffer
	status      int
	wroteHeader bool
}

func (b *bufferedWriter) WriteHeader(status int) {
	if !b.wroteHeader {
		b.status = status
		b.wroteHeader = true
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.buf.Write(p)
}

// DecodeRequest replaces the body of requests sent with a supported
// Content-Encoding by a decoding reader. Unsupported encodings are passed
// to reject with ErrUnsupportedEncoding.
func DecodeRequest(reject func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			alg, ok := ParseAlgorithm(token)
			if !ok {
				reject(w, r, ErrUnsupportedEncoding)
				return
			}
			if alg == AlgorithmNone {
				next.ServeHTTP(w, r)
				return
			}

			body, err := NewReader(alg, r.Body)
			if err != nil {
				reject(w, r, err)
				return
			}
			defer body.Close()

			r.Body = body
			r.Header.Del("Content-Encoding")
			r.Header.Del("Content-Length")
			r.ContentLength = -1
			next.ServeHTTP(w, r)
		})
	}
}
