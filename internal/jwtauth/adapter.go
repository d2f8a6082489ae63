package jwtauth

import (
	"riskgate/internal/platform/middleware"
)

// Adapter bridges the JWT service to the middleware's TokenValidator interface.
type Adapter struct {
	service *Service
}

func NewAdapter(service *Service) *Adapter {
	return &Adapter{service: service}
}

func (a *Adapter) Validate(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		Actor: claims.Actor,
		Role:  claims.Role,
	}, nil
}
