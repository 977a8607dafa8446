package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/playvault/backend/internal/models"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrSessionExpired = errors.New("session expired")
)

// Identity is the set of claims a session token carries.
type Identity struct {
	UserID          string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// Upsert converts the identity into the user row it should create or refresh.
func (i Identity) Upsert() models.UpsertUser {
	return models.UpsertUser{
		ID:              i.UserID,
		Email:           i.Email,
		FirstName:       i.FirstName,
		LastName:        i.LastName,
		ProfileImageURL: i.ProfileImageURL,
	}
}

func IssueToken(secret []byte, id Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":               id.UserID,
		"email":             id.Email,
		"first_name":        id.FirstName,
		"last_name":         id.LastName,
		"profile_image_url": id.ProfileImageURL,
		"exp":               now.Add(ttl).Unix(),
		"iat":               now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates an HS256 token. Expiry is reported as ErrSessionExpired
// so callers can tell the client to re-authenticate.
func ParseToken(secret []byte, tokenStr string) (*Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:          sub,
		Email:           stringClaim(claims, "email"),
		FirstName:       stringClaim(claims, "first_name"),
		LastName:        stringClaim(claims, "last_name"),
		ProfileImageURL: stringClaim(claims, "profile_image_url"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
