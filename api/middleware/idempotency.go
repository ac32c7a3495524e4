package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/stackfinderz-backend/api/responses"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/stackfinderz-backend/pkg/redis"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	maxIdempotencyKeyLen   = 255

	// A reservation outlives any sane handler but expires if the process dies mid-request.
	reservationTTL = 2 * time.Minute
)

type idempotencyRule struct {
	method string
	match  func(path string) bool
	ttl    time.Duration
}

// Review decisions keep their key for a week so a retried approve can never promote twice.
var idempotencyRules = []idempotencyRule{
	{http.MethodPost, exactPath("/api/v1/auth/register"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/v1/contributions"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/v1/bookmarks"), defaultIdempotencyTTL},
	{http.MethodPost, wrappedPath("/api/admin/v1/contributions/", "/review"), criticalIdempotencyTTL},
}

// idempotencyRecord is what sits under a key. An in-flight request holds a record with
// InFlight set until it finishes.
type idempotencyRecord struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	Status      int    `json:"status,omitempty"`
	Body        string `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

type idempotencyGuard struct {
	store pkgredis.IdempotencyStore
	logg  *logger.Logger
}

// Idempotency replays the stored response when a client retries a mutating call with the
// same Idempotency-Key. The header is opt-in; requests without it run unprotected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	g := idempotencyGuard{store: store, logg: logg}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !guarded || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			g.serve(w, r, next, clientKey, ttl)
		})
	}
}

func (g idempotencyGuard) serve(w http.ResponseWriter, r *http.Request, next http.Handler, clientKey string, ttl time.Duration) {
	ctx := r.Context()
	if len(clientKey) > maxIdempotencyKeyLen {
		g.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long").
			WithDetails(map[string]string{idempotencyHeader: "must be at most 255 characters"}))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	hash := hashBody(body)
	key := g.store.IdempotencyKey(requestScope(r), clientKey)

	reserved, err := g.reserve(ctx, key, hash)
	if err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
		return
	}
	if !reserved {
		g.replay(ctx, w, key, hash)
		return
	}

	capture := &responseCapture{ResponseWriter: w}
	next.ServeHTTP(capture, r)
	g.settle(ctx, key, hash, capture, ttl)
}

func (g idempotencyGuard) reserve(ctx context.Context, key, hash string) (bool, error) {
	marker, err := json.Marshal(idempotencyRecord{InFlight: true, RequestHash: hash})
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, string(marker), reservationTTL)
}

func (g idempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, key, hash string) {
	stored, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// The reservation expired between SetNX and Get; the client may simply retry.
		g.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotent request still in progress"))
		return
	}
	if err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		g.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != hash:
		g.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.InFlight:
		g.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotent request still in progress"))
	default:
		writeStoredResponse(w, record)
	}
}

// settle pins the final response to the key. Server failures are retryable, so the
// reservation is released instead.
func (g idempotencyGuard) settle(ctx context.Context, key, hash string, capture *responseCapture, ttl time.Duration) {
	status := capture.statusOrOK()
	if status >= http.StatusInternalServerError {
		if err := g.store.Del(ctx, key); err != nil {
			g.logError(ctx, "release idempotency key", err)
		}
		return
	}
	payload, err := json.Marshal(idempotencyRecord{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		ContentType: capture.Header().Get("Content-Type"),
		RequestHash: hash,
	})
	if err != nil {
		g.logError(ctx, "marshal idempotency record", err)
		return
	}
	if err := g.store.Set(ctx, key, string(payload), ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g idempotencyGuard) fail(ctx context.Context, w http.ResponseWriter, err error) {
	responses.WriteError(ctx, g.logg, w, err)
}

func (g idempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

// requestScope binds a key to the caller and the concrete resource it targeted.
func requestScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func writeStoredResponse(w http.ResponseWriter, record idempotencyRecord) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(idempotencyReplayHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func routePattern(r *http.Request) string {
	// Inside a sub-router the pattern is still a wildcard; fall back to the concrete path.
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, path string) (time.Duration, bool) {
	if path == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.match(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

func exactPath(want string) func(string) bool {
	return func(path string) bool { return path == want }
}

func wrappedPath(prefix, suffix string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
