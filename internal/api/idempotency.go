package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/starford/qarchive/internal/checksum"
)

// Header names used for request deduplication.
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

// DefaultIdempotencyTTL is how long a completed response stays replayable.
const DefaultIdempotencyTTL = 24 * time.Hour

type idemEntry struct {
	fingerprint string
	done        bool
	status      int
	header      http.Header
	body        []byte
}

// Idempotency replays the first response recorded for an Idempotency-Key.
// A key reused with a different request is rejected with 422; a key whose
// first request is still running gets 409. Server errors are not recorded
// so the caller may retry them.
type Idempotency struct {
	entries *cache.Cache
	ttl     time.Duration
}

// NewIdempotency creates the replay cache. A non-positive ttl selects
// DefaultIdempotencyTTL.
func NewIdempotency(ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &Idempotency{
		entries: cache.New(ttl, ttl/2),
		ttl:     ttl,
	}
}

// Middleware deduplicates keyed non-GET requests.
func (m *Idempotency) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("unreadable request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		fp := checksum.Fingerprint([]byte(r.Method), []byte(r.URL.Path), body)

		if err := m.entries.Add(key, idemEntry{fingerprint: fp}, m.ttl); err != nil {
			m.answerExisting(w, key, fp)
			return
		}

		completed := false
		defer func() {
			if !completed {
				m.entries.Delete(key)
			}
		}()

		var buf bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusInternalServerError {
			return
		}
		m.entries.Set(key, idemEntry{
			fingerprint: fp,
			done:        true,
			status:      status,
			header:      w.Header().Clone(),
			body:        buf.Bytes(),
		}, m.ttl)
		completed = true
	})
}

func (m *Idempotency) answerExisting(w http.ResponseWriter, key, fp string) {
	v, ok := m.entries.Get(key)
	if !ok {
		// Expired or released between Add and Get.
		writeInFlight(w)
		return
	}
	e := v.(idemEntry)
	switch {
	case e.fingerprint != fp:
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("idempotency key reused with a different request"))
	case !e.done:
		writeInFlight(w)
	default:
		for k, vals := range e.header {
			w.Header()[k] = vals
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(e.status)
		if _, err := w.Write(e.body); err != nil {
			slog.Debug("idempotent replay write failed", slog.String("error", err.Error()))
		}
	}
}

// writeInFlight answers a request whose key is still being processed.
// Retry-After tells keyed clients the conflict is worth retrying.
func writeInFlight(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	writeJSON(w, http.StatusConflict, errorBody("idempotent request in flight, retry"))
}
