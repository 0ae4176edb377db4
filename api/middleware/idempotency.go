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
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/dispo-backend/api/responses"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/dispo-backend/pkg/redis"
)

const (
	idempotencyKeyHeader   = "Idempotency-Key"
	replayedHeader         = "Idempotent-Replayed"
	maxIdempotencyKeyLen   = 255
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// idempotencyRule selects POST routes that require an Idempotency-Key. A path ending in
// "/" matches every route below it.
type idempotencyRule struct {
	method string
	path   string
	ttl    time.Duration
}

func (r idempotencyRule) matches(method, pattern string) bool {
	if r.method != method {
		return false
	}
	if strings.HasSuffix(r.path, "/") {
		return strings.HasPrefix(pattern, r.path)
	}
	return pattern == r.path
}

var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, path: "/api/v1/hu-traces", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/procurement/", ttl: defaultIdempotencyTTL},
	// ERP retries of a transaction submission must never reconcile twice
	{method: http.MethodPost, path: "/api/v1/transaction-events", ttl: criticalIdempotencyTTL},
}

// storedResponse is the JSON value kept in Redis for one (scope, key) pair.
type storedResponse struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

func (s storedResponse) replay(w http.ResponseWriter) {
	if ct := s.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	if decoded, err := base64.StdEncoding.DecodeString(s.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

// Idempotency replays the first response recorded for an Idempotency-Key. Keys are scoped
// to the origin client and org plus method and path. Server errors are not recorded so
// that the caller can retry them with the same key.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
			if idempotencyKey == "" || len(idempotencyKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required").
					WithDetails(map[string]any{"max_length": maxIdempotencyKeyLen}))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashBody(body)
			key := store.IdempotencyKey(buildScope(r), idempotencyKey)

			stored, err := loadStoredResponse(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if stored != nil {
				if stored.RequestHash != requestHash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				stored.replay(w)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := defaultStatus(capture.status)
			if status >= http.StatusInternalServerError {
				return
			}
			record := storedResponse{
				Status:      status,
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				RequestHash: requestHash,
			}
			if ct := capture.Header().Get("Content-Type"); ct != "" {
				record.Headers = map[string]string{"Content-Type": ct}
			}
			if err := saveStoredResponse(ctx, store, key, record, ttl); err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func loadStoredResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var record storedResponse
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &record, nil
}

func saveStoredResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, record storedResponse, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = store.SetNX(ctx, key, string(payload), ttl)
	return err
}

func buildScope(r *http.Request) string {
	return strings.Join([]string{
		strconv.FormatInt(ClientIDFromContext(r.Context()), 10),
		strconv.FormatInt(OrgIDFromContext(r.Context()), 10),
		r.Method,
		r.URL.Path,
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	// inside a mounted sub-router the pattern is still the wildcard mount point
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return strings.TrimSuffix(pattern, "/")
		}
	}
	if r.URL.Path == "/" {
		return r.URL.Path
	}
	return strings.TrimSuffix(r.URL.Path, "/")
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.matches(method, pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
