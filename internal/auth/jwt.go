// Package auth turns HS256 bearer tokens into actors.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Spok95/acadify-records/internal/ctxutil"
	"github.com/Spok95/acadify-records/internal/models"
)

const (
	KindStaff   = "staff"
	KindStudent = "student"
)

var (
	ErrMissingToken = errors.New("authorization token required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Claims struct {
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue signs a token for actor valid for ttl.
func (v *Verifier) Issue(actor models.Actor, ttl time.Duration) (string, error) {
	kind := KindStaff
	role := actor.Role().String()
	if _, ok := actor.(models.StudentActor); ok {
		kind = KindStudent
		role = ""
	}
	now := time.Now()
	claims := Claims{
		Kind: kind,
		Role: role,
		Name: actor.DisplayName(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actor.ID(), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates the token and maps its claims to an actor.
func (v *Verifier) Parse(token string) (models.Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	switch claims.Kind {
	case KindStudent:
		return models.StudentActor{StudentID: id, Name: claims.Name}, nil
	case KindStaff:
		role, err := models.ParseRole(claims.Role)
		if err != nil || !role.IsStaff() {
			return nil, fmt.Errorf("%w: bad staff role %q", ErrInvalidToken, claims.Role)
		}
		return models.StaffActor{UserID: id, StaffRole: role, Name: claims.Name}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, claims.Kind)
	}
}

type actorKey struct{}

func WithActor(ctx context.Context, a models.Actor) context.Context {
	return ctxutil.WithActorKey(context.WithValue(ctx, actorKey{}, a), a.Key())
}

// ActorFrom returns the authenticated actor or nil.
func ActorFrom(ctx context.Context) models.Actor {
	a, _ := ctx.Value(actorKey{}).(models.Actor)
	return a
}

// Middleware rejects requests without a valid bearer token. onError writes the 401 body.
func (v *Verifier) Middleware(onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearer(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			actor, err := v.Parse(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearer(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
