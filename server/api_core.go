package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"listo/sse"
)

type api struct {
	store  *Store
	log    *slog.Logger
	cfg    Config
	events *sse.Broadcaster
	// rate limiting buckets per IP:key
	rlMu sync.Mutex
	rl   map[string]*rateBucket
}

func newAPI(store *Store, log *slog.Logger, cfg Config) *api {
	return &api{
		store:  store,
		log:    log,
		cfg:    cfg,
		events: sse.NewBroadcaster(sse.Default(), log),
		rl:     map[string]*rateBucket{},
	}
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func (a *api) allow(ip, key string, max int, window time.Duration) bool {
	now := time.Now()
	rk := ip + ":" + key
	a.rlMu.Lock()
	b, ok := a.rl[rk]
	if !ok || now.After(b.resetAt) {
		b = &rateBucket{count: 0, resetAt: now.Add(window)}
		a.rl[rk] = b
	}
	if b.count >= max {
		a.rlMu.Unlock()
		return false
	}
	b.count++
	a.rlMu.Unlock()
	return true
}

func (a *api) withRateLimit(name string, max int, window time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !a.allow(ip, name, max, window) {
			writeError(w, 429, "too many requests")
			return
		}
		next(w, r)
	}
}

func parseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func (a *api) currentUser(r *http.Request) (*User, error) {
	c, err := r.Cookie(a.cfg.Cookie.Name)
	if err != nil || c.Value == "" {
		return nil, ErrNotFound
	}
	u, err := a.store.UserBySession(r.Context(), c.Value)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// requireAuth wraps a handler and enforces a valid session
func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := a.currentUser(r); err != nil {
			writeError(w, 401, "unauthorized")
			return
		}
		next(w, r)
	}
}

// requireListMember resolves {id} as a list id and enforces membership.
// Non-members get 404, not 403, so the response never confirms that the
// list exists.
func (a *api) requireListMember(r *http.Request, listID int64) (*User, int, string) {
	u, err := a.currentUser(r)
	if err != nil {
		return nil, 401, "unauthorized"
	}
	ok, err := a.store.IsListMember(r.Context(), u.ID, listID)
	if err != nil {
		a.log.Error("membership check", "err", err)
		return nil, 500, "internal error"
	}
	if !ok {
		return nil, 404, "not found"
	}
	return u, 0, ""
}

// requireListOwner is requireListMember plus the owner role.
func (a *api) requireListOwner(r *http.Request, listID int64) (*User, int, string) {
	u, status, msg := a.requireListMember(r, listID)
	if status != 0 {
		return nil, status, msg
	}
	own, err := a.store.IsListOwner(r.Context(), u.ID, listID)
	if err != nil {
		a.log.Error("owner check", "err", err)
		return nil, 500, "internal error"
	}
	if !own {
		return nil, 403, "forbidden"
	}
	return u, 0, ""
}

func withLogging(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		log.Info("http", "method", r.Method, "path", r.URL.Path, "status", sw.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) { w.status = code; w.ResponseWriter.WriteHeader(code) }

// Implement http.Flusher if underlying writer supports it (needed for SSE)
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
