package rpcserver

import (
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier builds a BearerAuth verify function that validates RS256
// bearer tokens against pubKey and returns the parsed registered claims as
// the dispatch-time auth context. It is an example verify function, not a
// spec requirement; hosts are free to supply their own.
func JWTVerifier(pubKey *rsa.PublicKey) func(token string) (any, bool) {
	return func(tokenStr string) (any, bool) {
		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return pubKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if err != nil || !token.Valid {
			return nil, false
		}
		return claims, true
	}
}
