// Package rates supplies the daily USD exchange rate snapshot.
//
// A Provider fetches a snapshot from somewhere (the rates function over HTTP,
// the rates table, a shared Redis entry). Session wraps a Provider and keeps the
// first loaded snapshot for the life of the process.
package rates

import (
	"context"
	"errors"

	"example.com/legacyfund/internal/domain"
)

// ErrNotLoaded is returned when a source answers with an all-zero snapshot.
var ErrNotLoaded = errors.New("exchange rates not loaded")

type Provider interface {
	Fetch(ctx context.Context) (domain.ExchangeRateSnapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (domain.ExchangeRateSnapshot, error)

func (f ProviderFunc) Fetch(ctx context.Context) (domain.ExchangeRateSnapshot, error) { return f(ctx) }
