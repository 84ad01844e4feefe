package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID uint
	Email  string
	Role   string
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is not set")
	}

	if ttl <= 0 {
		ttl = time.Hour * 168
	}

	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is how long issued tokens stay valid.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

func (i *Issuer) Generate(userID uint, email, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"role":    role,
		"exp":     i.now().Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("Invalid or expired token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)

	if !ok {
		return Claims{}, fmt.Errorf("Invalid token claims")
	}

	userIDFloat, ok := mapClaims["user_id"].(float64)

	if !ok {
		return Claims{}, fmt.Errorf("Invalid user ID in token claims")
	}

	email, _ := mapClaims["email"].(string)
	role, _ := mapClaims["role"].(string)

	return Claims{UserID: uint(userIDFloat), Email: email, Role: role}, nil
}
