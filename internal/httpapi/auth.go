package httpapi

import (
	"context"
	"net/http"
	"strings"

	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/policy"
	"triptales/catalog-service/internal/session"
)

type authContextKey struct{}

type authInfo struct {
	User  models.User
	Token string
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

type endpointAccess int

const (
	accessRequired endpointAccess = iota
	accessOptional
	accessPublic
)

// AuthMiddleware resolves the bearer token into the request context.
// Optional endpoints serve anonymous callers, but a header that is present
// and bad is rejected everywhere except public endpoints.
func AuthMiddleware(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access := classifyEndpoint(r)
		if access == accessPublic {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" && access == accessOptional {
			next.ServeHTTP(w, r)
			return
		}

		token, err := session.ParseBearer(header)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		user, err := auth.Authenticate(r.Context(), token)
		if err != nil {
			writeFailure(w, r, err)
			return
		}
		recordUser(r.Context(), user.UserID)
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{User: user, Token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	if !ok {
		return authInfo{}, false
	}
	return info, true
}

// actorFromRequest returns the anonymous actor when no session was resolved.
func actorFromRequest(r *http.Request) policy.Actor {
	info, ok := authFromContext(r.Context())
	if !ok {
		return policy.Actor{}
	}
	return policy.ActorFor(info.User)
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func classifyEndpoint(r *http.Request) endpointAccess {
	if r.Method == http.MethodOptions {
		return accessPublic
	}
	switch r.URL.Path {
	case "/api/health", "/metrics", "/api/auth/register", "/api/auth/login":
		return accessPublic
	case "/api/itineraries":
		if r.Method == http.MethodGet {
			return accessOptional
		}
		return accessRequired
	default:
		return accessRequired
	}
}
