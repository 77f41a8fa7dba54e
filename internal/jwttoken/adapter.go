package jwttoken

import (
	authmw "github.com/KarimBkr/MyTsango/internal/platform/middleware"
)

// Adapter exposes the token service through the middleware's validator port.
type Adapter struct {
	service *Service
}

func NewAdapter(service *Service) *Adapter {
	return &Adapter{service: service}
}

func (a *Adapter) ValidateToken(tokenString string) (*authmw.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.TokenClaims{UserID: claims.UserID}, nil
}
