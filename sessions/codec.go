package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ValdemirJunior2020/churchApp-Saas/store"
	"github.com/golang-jwt/jwt/v5"
)

const (
	codecIssuer  = "congregate"
	codecVersion = 1
	deviceKeyLen = 32
)

type sessionClaims struct {
	Version int     `json:"ver"`
	Session Session `json:"sess"`
	jwt.RegisteredClaims
}

// Codec turns a Session into an HS256-signed blob so a tampered or foreign
// blob in device storage is rejected instead of trusted.
type Codec struct {
	key     []byte
	nowFunc func() time.Time
}

func NewCodec(key []byte) *Codec {
	return &Codec{key: key, nowFunc: time.Now}
}

func (c *Codec) Encode(s Session) (string, error) {
	claims := sessionClaims{
		Version: codecVersion,
		Session: s,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   codecIssuer,
			Subject:  s.UserID,
			IssuedAt: jwt.NewNumericDate(c.nowFunc()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies and unpacks a blob written by Encode.
func (c *Codec) Decode(blob string) (Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(blob, claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(codecIssuer))
	if err != nil {
		return Session{}, fmt.Errorf("invalid session blob: %w", err)
	}
	if claims.Version != codecVersion {
		return Session{}, fmt.Errorf("unsupported session blob version %d", claims.Version)
	}
	if claims.Session.TenantID == "" || claims.Session.UserID == "" {
		return Session{}, fmt.Errorf("session blob without tenant or user")
	}
	return claims.Session, nil
}

// DeviceKey returns the signing key kept in s, generating and storing one
// on first use. When storage fails the key only lives for this process.
func DeviceKey(ctx context.Context, s store.Store) ([]byte, error) {
	if encoded, ok, err := s.Get(ctx, store.DeviceKeyKey); err == nil && ok {
		if key, err := hex.DecodeString(encoded); err == nil && len(key) == deviceKeyLen {
			return key, nil
		}
	}
	key := make([]byte, deviceKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate device key: %w", err)
	}
	if err := s.Set(ctx, store.DeviceKeyKey, hex.EncodeToString(key)); err != nil {
		return key, err
	}
	return key, nil
}
