package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/angelmondragon/dispo-backend/api/responses"
	pkgerrors "github.com/angelmondragon/dispo-backend/pkg/errors"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

type contextKey string

const (
	ctxClientID contextKey = "client_id"
	ctxOrgID    contextKey = "org_id"
)

const (
	clientIDHeader = "X-Dispo-Client-Id"
	orgIDHeader    = "X-Dispo-Org-Id"
)

// ClientIDFromContext returns the ERP client the request acts for, zero when unset.
func ClientIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxClientID).(int64); ok {
		return v
	}
	return 0
}

func OrgIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxOrgID).(int64); ok {
		return v
	}
	return 0
}

// WithOrigin injects the ERP client and organization into the context.
func WithOrigin(ctx context.Context, clientID, orgID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxClientID, clientID)
	return context.WithValue(ctx, ctxOrgID, orgID)
}

// Origin reads the optional ERP client/org headers. Malformed values are rejected.
func Origin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, err := headerID(r, clientIDHeader)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			orgID, err := headerID(r, orgIDHeader)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithOrigin(r.Context(), clientID, orgID)
			if logg != nil && (clientID > 0 || orgID > 0) {
				ctx = logg.WithFields(ctx, map[string]any{"client_id": clientID, "org_id": orgID})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func headerID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid origin header").WithDetails(map[string]any{"header": name})
	}
	return id, nil
}
