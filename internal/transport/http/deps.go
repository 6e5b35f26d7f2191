package http

import (
	"github.com/go-accounts-nosql/internal/application/account"
	jwtinfra "github.com/go-accounts-nosql/internal/infrastructure/jwt"
	"github.com/go-accounts-nosql/internal/infrastructure/metrics"
)

// Deps holds the application services and infrastructure the router wires.
type Deps struct {
	Accounts account.Service
	// JWTProvider is optional. Without it login returns no bearer token and
	// authenticated routes reject every request.
	JWTProvider *jwtinfra.Provider
	Metrics     *metrics.Recorder
}
