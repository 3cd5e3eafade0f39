package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

type Config struct {
	Secret   string        `json:"-" envconfig:"JWT_SECRET" required:"true"`
	TokenTTL time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type Claims struct {
	Profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"profile"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrNoUser       = errors.New("user is not in context")
)

type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

func Issue(cfg Config, userID, name, email string, now time.Time) (Token, error) {
	exp := now.Add(cfg.TokenTTL)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	claims.Profile.Name = name
	claims.Profile.Email = email

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return Token{}, errors.Wrap(err, "SignedString")
	}
	return Token{AccessToken: s, ExpiresAt: exp}, nil
}

func Parse(cfg Config, tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

type ctxKey int

const userKey ctxKey = iota + 1

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func SetAuthContext(ctx context.Context, userID, email string) context.Context {
	return context.WithValue(ctx, userKey, User{ID: userID, Email: email})
}

func GetUser(ctx context.Context) (User, error) {
	u, ok := ctx.Value(userKey).(User)
	if !ok || u.ID == "" {
		return User{}, ErrNoUser
	}
	return u, nil
}
