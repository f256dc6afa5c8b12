package utils

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"

	"collab-docs/models"
)

// Tokens are minted by the external identity provider; this service only
// verifies them and reads the principal out of the claims.

var signingKey []byte

func SetSigningKey(key []byte) {
	signingKey = key
}

func ExtractClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// PrincipalFromToken validates the token and extracts the principal. The
// subject claim is required; a name claim is carried through when present.
// Expiry is enforced by the parser.
func PrincipalFromToken(tokenString string) (models.Principal, error) {
	claims, err := ExtractClaims(tokenString)
	if err != nil {
		return models.Principal{}, err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return models.Principal{}, fmt.Errorf("token has no subject")
	}
	name, _ := claims["name"].(string)
	return models.Principal{ID: sub, Name: name}, nil
}
