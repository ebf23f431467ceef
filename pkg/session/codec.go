package session

import (
	"crypto/sha256"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"forohub/pkg/domain"
)

const defaultIssuer = "forohub"

var (
	defaultTTL    = 2 * time.Hour
	defaultLeeway = 30 * time.Second
)

// Decode failure taxonomy. Callers that gate requests only need to know
// which of these buckets a token fell into.
var (
	ErrMalformed        = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
	ErrExpired          = errors.New("token expired")
	ErrInvalidToken     = errors.New("token invalid")
)

// Claims carried by a session token: the registered subject (user email)
// plus the caller's role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Options configures token issuance and validation.
type Options struct {
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
}

// Codec issues and validates HS256 session tokens. The signing key is
// derived deterministically from the configured secret, so tokens stay
// valid across restarts and across instances sharing the secret.
type Codec struct {
	key    []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
}

// NewCodec builds a codec from the configured secret.
func NewCodec(secret string, opts Options) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret is required")
	}
	opts = normalizeOptions(opts)
	key := sha256.Sum256([]byte(secret))
	return &Codec{
		key:    key[:],
		ttl:    opts.TTL,
		issuer: opts.Issuer,
		leeway: opts.Leeway,
	}, nil
}

// Encode signs a token binding subject and role, expiring after the
// configured TTL.
func (c *Codec) Encode(subject string, role domain.UserRole) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("token subject is required")
	}
	now := time.Now().UTC()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Decode verifies the signature and registered claims and returns the
// embedded subject and role. Failures map onto the package's sentinel
// errors via errors.Is.
func (c *Codec) Decode(token string) (Claims, error) {
	claims := Claims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrMalformed
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(c.leeway),
	)
	if err != nil {
		return Claims{}, classifyDecodeError(err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// TTL reports the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

func classifyDecodeError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrInvalidToken
	}
}

func normalizeOptions(opts Options) Options {
	opts.Issuer = strings.TrimSpace(opts.Issuer)
	if opts.Issuer == "" {
		opts.Issuer = defaultIssuer
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultLeeway
	}
	return opts
}
