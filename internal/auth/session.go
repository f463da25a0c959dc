// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/taboo/internal/models"
)

// ErrInvalidSeatToken is returned for any token that fails verification.
var ErrInvalidSeatToken = errors.New("invalid seat token")

// SeatClaims binds a connection to the room it joined. Seat tokens let a
// client read its current card over plain HTTP.
type SeatClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// Seat is the verified content of a seat token.
type Seat struct {
	Conn models.ConnID
	Room string
}

// SeatSigner issues and verifies EdDSA-signed seat tokens.
type SeatSigner struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

// NewSeatSigner generates a fresh ed25519 key pair at runtime. Tokens do not
// survive a restart, and neither do rooms. ttl 0 means tokens never expire.
func NewSeatSigner(ttl time.Duration) (*SeatSigner, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &SeatSigner{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// NewSeatSignerFromPath reads ed25519 private/public keys from file.
func NewSeatSignerFromPath(privatePath, publicPath string, ttl time.Duration) (*SeatSigner, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key files have the wrong size for ed25519")
	}
	return &SeatSigner{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token with "sub" = conn and "room" = roomCode.
func (s *SeatSigner) Issue(conn models.ConnID, roomCode string) (string, error) {
	now := s.now()
	claims := SeatClaims{
		Room: roomCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  conn.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks a token's signature and expiry and returns the seat it names.
func (s *SeatSigner) Verify(tokenString string) (Seat, error) {
	claims := &SeatClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Seat{}, fmt.Errorf("%w: %v", ErrInvalidSeatToken, err)
	}
	if !t.Valid {
		return Seat{}, ErrInvalidSeatToken
	}
	if claims.Subject == "" || claims.Room == "" {
		return Seat{}, fmt.Errorf("%w: missing sub or room", ErrInvalidSeatToken)
	}
	return Seat{Conn: models.ConnID(claims.Subject), Room: claims.Room}, nil
}
