package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/reseau-affaires/apiserver/config"
	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/types"
)

const defaultTokenTTL = 24 * time.Hour

// ActorResolver loads the authorization identity behind a token subject.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID int) (authz.Actor, error)
}

// AuthHandler provides JWT authentication and self-service account endpoints.
type AuthHandler struct {
	accounts    *services.AccountService
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(accounts *services.AccountService, userService *services.UserService, cfg config.JWTConfig) *AuthHandler {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthHandler{
		accounts:    accounts,
		userService: userService,
		secret:      []byte(cfg.Secret),
		tokenTTL:    ttl,
	}
}

// AuthRouter registers auth routes on the given router. loginLimiter,
// when set, wraps the token endpoint.
func AuthRouter(
	r chi.Router,
	accounts *services.AccountService,
	userService *services.UserService,
	cfg config.JWTConfig,
	loginLimiter func(http.Handler) http.Handler,
) {
	handler := NewAuthHandler(accounts, userService, cfg)

	if loginLimiter != nil {
		r.With(loginLimiter).Post("/token", handler.Login)
	} else {
		r.Post("/token", handler.Login)
	}
	r.Get("/me", handler.Me)
	r.Patch("/me", handler.UpdateMe)
	r.Delete("/me", handler.DeleteMe)
}

// Authenticate resolves the bearer token, when present, to an actor and
// stores it in the request context. Requests without a token proceed
// anonymously; a token that does not resolve to an active account is
// rejected.
func Authenticate(resolver ActorResolver, jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			subject, err := parseTokenSubject(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			userID, err := strconv.Atoi(subject)
			if err != nil || userID < 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), userID)
			if err != nil {
				if errors.Is(err, services.ErrAccountInactive) {
					writeError(w, http.StatusUnauthorized, "account inactive")
					return
				}
				slog.DebugContext(r.Context(), "resolve actor failed", slog.Int("user_id", userID), slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial update to the current user.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req services.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	user, err := h.userService.UpdateMe(r.Context(), actorFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteMe deactivates the current user. Content stays in place.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeactivateMe(r.Context(), actorFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

func issueToken(userID int, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseTokenSubject(tokenString string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
