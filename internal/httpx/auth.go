package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-campus-bookings/internal/bookings"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey struct{}

// Authenticator verifies HS256 bearer tokens issued by the account service.
// The subject is the user id; the optional role claim marks admins.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.actor(r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authorized, token failed"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, actor)))
	})
}

func (a *Authenticator) actor(header string) (bookings.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return bookings.Actor{}, errors.New("missing bearer token")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return bookings.Actor{}, err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return bookings.Actor{}, errors.New("token has no subject")
	}
	role, _ := claims["role"].(string)
	return bookings.Actor{UserID: sub, Role: role}, nil
}

func actorFrom(ctx context.Context) bookings.Actor {
	a, _ := ctx.Value(ctxKey{}).(bookings.Actor)
	return a
}
