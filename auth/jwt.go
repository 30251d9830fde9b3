package auth

import (
	"crypto/rsa"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims wraps the standard jwt.RegisteredClaims and is what
// JWTVerifier.Verify returns. Fields beyond the registered set are not
// decoded into it.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTVerifier validates RS256 bearer tokens presented to the server. It is
// the verification half of the token-producing Provider interface: a client
// uses a Provider to produce a token, a server uses a JWTVerifier to check
// one. rpcserver.JWTVerifier performs its own RS256 check for BearerAuth
// and does not use this type.
type JWTVerifier struct {
	pubKey *rsa.PublicKey
}

// NewJWTVerifier builds a JWTVerifier that checks RS256 signatures against
// pubKey.
func NewJWTVerifier(pubKey *rsa.PublicKey) *JWTVerifier {
	return &JWTVerifier{pubKey: pubKey}
}

// Verify parses and validates tokenStr, returning its claims on success. It
// rejects tokens signed with anything other than RS256, expired tokens, and
// malformed tokens.
func (v *JWTVerifier) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("auth: unexpected signing method")
		}
		return v.pubKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: token is not valid")
	}
	return claims, nil
}
