package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/user"
)

// APIKeyHeader is the header clients put their key in. A bearer token in
// Authorization is accepted as well.
const APIKeyHeader = "api_key"

// Authenticator resolves API keys to actors. Keys are stored as HMAC-SHA256
// hashes under a server side pepper.
type Authenticator struct {
	keys   auth.Repository
	users  user.Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(keys auth.Repository, users user.Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, users: users, pepper: pepper}
}

// Authenticate returns the actor owning key. Unknown keys and keys whose
// user is gone yield auth.ErrUnauthenticated.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (auth.Actor, error) {
	if key == "" {
		return auth.Actor{}, auth.ErrUnauthenticated
	}
	hash := auth.HashAPIKey(a.pepper, key)

	info, err := a.keys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return auth.Actor{}, auth.ErrUnauthenticated
		}
		return auth.Actor{}, errors.Wrap(err, "find api key")
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return auth.Actor{}, auth.ErrUnauthenticated
	}

	u, err := a.users.FindByID(ctx, info.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return auth.Actor{}, auth.ErrUnauthenticated
		}
		return auth.Actor{}, errors.Wrap(err, "find key owner")
	}
	return u.Actor(), nil
}

// Middleware rejects requests without a valid key and stores the actor in
// the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.Authenticate(r.Context(), credential(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := auth.WithActor(r.Context(), actor)
		ctx = zctx.With(ctx, zap.String("user_id", actor.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func credential(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func actorFrom(r *http.Request) auth.Actor {
	a, _ := auth.ActorFromContext(r.Context())
	return a
}
