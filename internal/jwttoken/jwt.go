package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KarimBkr/MyTsango/pkg/apperrors"
)

// Claims represents the claims we expect on access tokens issued by the auth
// service. This backend only validates tokens; it never mints them.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service validates bearer tokens against the shared signing key.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "token has expired")
		}
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "token missing user identity")
	}
	return claims, nil
}
