package admin

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"FadiSync/pkg/kit"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Guard protects the mutating cache-control actions. The operator exchanges
// the admin key (verified against a bcrypt hash, never stored in clear) for
// a short-lived JWT. A nil *Guard means the admin surface is disabled and
// every action is open — development mode only.
type Guard struct {
	keyHash []byte
	jwt     *TokenMaker
	log     *zap.Logger
}

func NewGuard(keyHash, jwtSecret string, log *zap.Logger) *Guard {
	return &Guard{
		keyHash: []byte(keyHash),
		jwt:     NewTokenMaker(jwtSecret),
		log:     log,
	}
}

// Authorize checks the Bearer token on a request.
func (g *Guard) Authorize(r *http.Request) error {
	if g == nil {
		return nil
	}

	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ErrMissingToken
	}
	if _, err := g.jwt.Parse(strings.TrimPrefix(authz, "Bearer ")); err != nil {
		return ErrInvalidToken
	}
	return nil
}

type tokenReq struct {
	Key string `json:"key"`
}

const maxTokenBody = 4 << 10

// TokenHandler exchanges the admin key for a JWT.
func (g *Guard) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenReq
		if err := kit.DecodeJSON(w, r, maxTokenBody, &req); err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
			return
		}

		if err := bcrypt.CompareHashAndPassword(g.keyHash, []byte(req.Key)); err != nil {
			kit.WriteError(w, r, http.StatusUnauthorized, "invalid key", nil)
			return
		}

		token, err := g.jwt.New()
		if err != nil {
			if g.log != nil {
				g.log.Error("token mint failed", zap.Error(err))
			}
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}

		kit.WriteJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"expires_in":   int(tokenTTL.Seconds()),
		})
	}
}
