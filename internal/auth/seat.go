// Package auth issues the tokens that bind a remote player to one side of
// one game.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/justinabrahms/deskchess/internal/chess"
)

const issuer = "deskchess"

var (
	ErrInvalidToken = errors.New("invalid seat token")
	ErrWrongSeat    = errors.New("token does not hold this seat")
)

// SeatClaims are the claims of a seat token.
type SeatClaims struct {
	jwt.RegisteredClaims
	Game string `json:"game"`
	Side string `json:"side"`
}

// Seat is a verified token's game and side.
type Seat struct {
	Game string
	Side chess.Side
}

// Issuer signs and verifies seat tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("seat token secret must be at least 16 bytes")
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue creates a token for side of game.
func (i *Issuer) Issue(game string, side chess.Side) (string, error) {
	now := i.now()
	claims := SeatClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  fmt.Sprintf("%s/%s", game, sideString(side)),
			IssuedAt: jwt.NewNumericDate(now),
		},
		Game: game,
		Side: sideString(side),
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign seat token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its seat.
func (i *Issuer) Verify(tokenString string) (Seat, error) {
	var claims SeatClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Seat{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	side, err := chess.ParseSide(claims.Side)
	if err != nil || claims.Game == "" {
		return Seat{}, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	return Seat{Game: claims.Game, Side: side}, nil
}

// Authorize verifies a token and checks it holds side of game.
func (i *Issuer) Authorize(tokenString, game string, side chess.Side) error {
	seat, err := i.Verify(tokenString)
	if err != nil {
		return err
	}
	if seat.Game != game || seat.Side != side {
		return ErrWrongSeat
	}
	return nil
}

func sideString(side chess.Side) string {
	if side == chess.White {
		return "white"
	}
	return "black"
}
