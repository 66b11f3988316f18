package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/penline/penline/internal/domain/user"
)

const (
	claimUserID = "uid"
	claimRole   = "role"
)

// Claims are the verified contents of a token
type Claims struct {
	Username   string
	UserID     uuid.UUID
	Role       user.Role
	IssuanceID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// IssuedToken is a freshly signed token plus what the caller needs to record its session
type IssuedToken struct {
	Token      string
	IssuanceID string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// TokenCodec signs and verifies tokens. It never touches the session store.
type TokenCodec struct {
	keys     *KeyStore
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenCodec creates a codec that issues tokens valid for lifetime
func NewTokenCodec(keys *KeyStore, lifetime time.Duration) *TokenCodec {
	return &TokenCodec{keys: keys, lifetime: lifetime, now: time.Now}
}

// Lifetime returns how long issued tokens stay valid
func (c *TokenCodec) Lifetime() time.Duration {
	return c.lifetime
}

// Issue signs a new token for the user with a fresh issuance id.
// Times are truncated to whole seconds so they match the token's iat and exp exactly.
func (c *TokenCodec) Issue(userID uuid.UUID, username string, role user.Role) (*IssuedToken, error) {
	key, err := c.keys.GetActiveKey()
	if err != nil {
		return nil, err
	}

	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(c.lifetime)
	jti := uuid.NewString()

	token, err := jwt.NewBuilder().
		Subject(username).
		JwtID(jti).
		IssuedAt(now).
		Expiration(exp).
		Claim(claimUserID, userID.String()).
		Claim(claimRole, role.String()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), key))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:      string(signed),
		IssuanceID: jti,
		IssuedAt:   now,
		ExpiresAt:  exp,
	}, nil
}

// Parse verifies the signature and expiry of a token and returns its claims.
// Any error is a *ParseError: syntax problems and missing claims are ParseMalformed,
// unknown kids and bad MACs are ParseSignatureInvalid, and a verified token past exp is ParseExpired.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, &ParseError{Kind: ParseMalformed, Err: errors.New("empty token")}
	}

	if _, err := jws.Parse([]byte(token)); err != nil {
		return nil, &ParseError{Kind: ParseMalformed, Err: err}
	}

	verified, err := jwt.Parse(
		[]byte(token),
		jwt.WithKeySet(c.keys.KeySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, &ParseError{Kind: ParseSignatureInvalid, Err: err}
	}

	exp, ok := verified.Expiration()
	if !ok || exp.IsZero() {
		return nil, &ParseError{Kind: ParseMalformed, Err: errors.New("missing exp claim")}
	}
	if !c.now().Before(exp) {
		return nil, &ParseError{Kind: ParseExpired, Err: fmt.Errorf("expired at %s", exp.Format(time.RFC3339))}
	}

	return claimsFromToken(verified, exp)
}

// ExtractUserID fully parses token and returns its user id
func (c *TokenCodec) ExtractUserID(token string) (uuid.UUID, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// ExtractIssuanceID fully parses token and returns its jti
func (c *TokenCodec) ExtractIssuanceID(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.IssuanceID, nil
}

func claimsFromToken(tok jwt.Token, exp time.Time) (*Claims, error) {
	malformed := func(msg string) error {
		return &ParseError{Kind: ParseMalformed, Err: errors.New(msg)}
	}

	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return nil, malformed("missing sub claim")
	}

	jti, ok := tok.JwtID()
	if !ok || jti == "" {
		return nil, malformed("missing jti claim")
	}

	var rawUID string
	if err := tok.Get(claimUserID, &rawUID); err != nil {
		return nil, malformed("missing uid claim")
	}
	uid, err := uuid.Parse(rawUID)
	if err != nil {
		return nil, malformed("uid claim is not a UUID")
	}

	var rawRole string
	if err := tok.Get(claimRole, &rawRole); err != nil {
		return nil, malformed("missing role claim")
	}
	role, err := user.ParseRole(rawRole)
	if err != nil {
		return nil, malformed("unknown role claim")
	}

	iat, _ := tok.IssuedAt()

	return &Claims{
		Username:   sub,
		UserID:     uid,
		Role:       role,
		IssuanceID: jti,
		IssuedAt:   iat,
		ExpiresAt:  exp,
	}, nil
}

// Fingerprint is the one-way hash of an issuance id stored in the session row
func Fingerprint(issuanceID string) string {
	sum := sha256.Sum256([]byte(issuanceID))
	return hex.EncodeToString(sum[:])
}
