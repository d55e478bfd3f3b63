package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenIssuer   = "todo-assistant"
	claimUsername = "username"
	claimSession  = "sid"
	minSecretLen  = 32
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks
var ErrInvalidToken = errors.New("invalid session token")

// Claims is what a session token asserts about its holder
type Claims struct {
	UserID    int64
	Username  string
	SessionID string
}

// TokenIssuer signs and verifies HS256 session tokens. Tokens carry no
// expiry: a session lasts until the client discards it.
type TokenIssuer struct {
	key []byte
	now func() time.Time
}

// NewTokenIssuer creates an issuer from a shared secret. An empty secret
// gets a random per-process key, which invalidates sessions on restart.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, minSecretLen)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	}
	return &TokenIssuer{key: key, now: time.Now}, nil
}

// Issue creates a token for the user with a fresh session id
func (i *TokenIssuer) Issue(userID int64, username string) (string, Claims, error) {
	claims := Claims{
		UserID:    userID,
		Username:  username,
		SessionID: uuid.NewString(),
	}

	tok, err := jwt.NewBuilder().
		Issuer(tokenIssuer).
		Subject(strconv.FormatInt(userID, 10)).
		IssuedAt(i.now()).
		Claim(claimUsername, username).
		Claim(claimSession, claims.SessionID).
		Build()
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to build session token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, i.key))
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	return string(signed), claims, nil
}

// Verify checks the signature and issuer and extracts the claims
func (i *TokenIssuer) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKey(jwa.HS256, i.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(token.Subject(), 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	claims := Claims{UserID: userID}

	if v, ok := token.Get(claimUsername); ok {
		if s, ok := v.(string); ok {
			claims.Username = s
		}
	}

	if v, ok := token.Get(claimSession); ok {
		if s, ok := v.(string); ok {
			claims.SessionID = s
		}
	}
	if claims.SessionID == "" {
		return Claims{}, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}

	return claims, nil
}
