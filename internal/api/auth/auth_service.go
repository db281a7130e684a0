package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hsm-gustavo/todo-go/internal/db"
	"github.com/hsm-gustavo/todo-go/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrMisconfigured means tokens can neither be issued nor checked because no
// signing secret is configured. It is never an authentication failure.
var ErrMisconfigured = errors.New("JWT_SECRET environment variable is required")

type TokenOutcome int

const (
	TokenAbsent TokenOutcome = iota
	TokenExpired
	TokenInvalid
	TokenValid
)

func (o TokenOutcome) String() string {
	switch o {
	case TokenAbsent:
		return "absent"
	case TokenExpired:
		return "expired"
	case TokenInvalid:
		return "invalid"
	case TokenValid:
		return "valid"
	default:
		return "unknown"
	}
}

type AuthService struct {
	TTL time.Duration

	secret func() ([]byte, error)
	now    func() time.Time
	log    zerolog.Logger
}

// NewAuthService builds the token issuer/validator. secretLookup is called at
// most once; its trimmed result is the HS256 key.
func NewAuthService(secretLookup func() string, ttl time.Duration, log zerolog.Logger) *AuthService {
	log = log.With().Str("component", "auth").Logger()
	return &AuthService{
		TTL: ttl,
		secret: sync.OnceValues(func() ([]byte, error) {
			s := strings.TrimSpace(secretLookup())
			if s == "" {
				log.Error().Msg("JWT_SECRET is not configured")
				return nil, ErrMisconfigured
			}
			return []byte(s), nil
		}),
		now: time.Now,
		log: log,
	}
}

// GenerateJWT signs an access token for u and returns it with its expiry.
func (s *AuthService) GenerateJWT(u *db.User) (string, time.Time, error) {
	key, err := s.secret()
	if err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.TTL)
	claims := db.Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT verifies signature (HS256 only), exp and sub.
func (s *AuthService) ParseJWT(tokenStr string) (*db.Claims, error) {
	key, err := s.secret()
	if err != nil {
		return nil, err
	}

	claims := &db.Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Subject == "" {
		return nil, jwt.ErrTokenRequiredClaimMissing
	}
	return claims, nil
}

// Inspect classifies an Authorization header value. The only error it
// returns is ErrMisconfigured.
func (s *AuthService) Inspect(authHeader string) (TokenOutcome, *db.Claims, error) {
	tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
	tokenStr = strings.TrimSpace(tokenStr)
	if !ok || tokenStr == "" {
		return TokenAbsent, nil, nil
	}

	claims, err := s.ParseJWT(tokenStr)
	switch {
	case err == nil:
		return TokenValid, claims, nil
	case errors.Is(err, ErrMisconfigured):
		return TokenInvalid, nil, err
	case errors.Is(err, jwt.ErrTokenExpired):
		return TokenExpired, nil, nil
	default:
		s.log.Debug().Err(err).Msg("token rejected")
		return TokenInvalid, nil, nil
	}
}

// Validate returns the claims of a valid bearer token, (nil, nil) when the
// caller is unauthenticated, and ErrMisconfigured when no secret is set.
// Expired and forged tokens look the same to the caller; only the logs
// tell them apart.
func (s *AuthService) Validate(authHeader string) (*db.Claims, error) {
	outcome, claims, err := s.Inspect(authHeader)
	if err != nil {
		metrics.RecordTokenOutcome("misconfigured")
		return nil, err
	}
	metrics.RecordTokenOutcome(outcome.String())

	switch outcome {
	case TokenAbsent:
		s.log.Debug().Msg("request without bearer token")
	case TokenExpired:
		s.log.Info().Msg("token expired")
	case TokenInvalid:
		s.log.Warn().Msg("invalid token")
	}
	return claims, nil
}
