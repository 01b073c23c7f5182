// Package provider defines the source contract every market-data source
// satisfies, and the error kinds the resolution chain reasons about.
package provider

import (
	"context"

	"github.com/chamatitus-cpu/luse-price-api/internal/market"
)

//go:generate mockgen -destination=providermock/provider.go -package=providermock github.com/chamatitus-cpu/luse-price-api/internal/provider Provider

// Provider yields the current equity listing from one upstream source.
// Implementations retry internally and return either rows or an *Error.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) ([]market.Row, error)
}
