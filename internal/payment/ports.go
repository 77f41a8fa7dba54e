package payment

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/provider.go -package=mocks

// Intent is the provider-side payment intent backing a subject.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider is the narrow capability interface over the payment provider's
// API. Creation is the only call the lifecycle service needs; settlement
// arrives through webhooks.
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, description string, metadata map[string]string) (*Intent, error)
}
