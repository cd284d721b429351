package connect

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/souqlink/backend/internal/domain/platform"
)

var (
	ErrInvalidState = errors.New("connect: invalid state token")
	ErrStateExpired = errors.New("connect: state token expired")
)

// stateClaims is the signed OAuth state. It binds the callback to the
// merchant and platform that started the flow and carries a single-use
// nonce against replay.
type stateClaims struct {
	MerchantID string `json:"mid"`
	Platform   string `json:"plt"`
	Nonce      string `json:"nce"`
	jwt.RegisteredClaims
}

// signState mints the HS256 state token
func signState(secret []byte, merchantID uuid.UUID, code platform.Code, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := stateClaims{
		MerchantID: merchantID.String(),
		Platform:   string(code),
		Nonce:      uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// verifyState validates the token signature and expiry and returns the
// bound merchant and platform.
func verifyState(secret []byte, token string) (uuid.UUID, platform.Code, error) {
	var claims stateClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, "", ErrStateExpired
		}
		return uuid.Nil, "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if !parsed.Valid {
		return uuid.Nil, "", ErrInvalidState
	}

	merchantID, err := uuid.Parse(claims.MerchantID)
	if err != nil {
		return uuid.Nil, "", ErrInvalidState
	}
	code, err := platform.ParseCode(claims.Platform)
	if err != nil {
		return uuid.Nil, "", ErrInvalidState
	}
	return merchantID, code, nil
}
