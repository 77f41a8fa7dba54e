package kyc

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/provider.go -package=mocks

// Provider is the narrow capability interface over the identity-verification
// provider's REST API. Calls are bounded by the client's timeout; failures
// surface to the caller as retryable errors.
type Provider interface {
	// CreateApplicant registers the user with the provider and returns the
	// externally-issued applicant id.
	CreateApplicant(ctx context.Context, externalUserID string) (string, error)

	// CreateAccessToken mints a short-lived SDK token for the user.
	CreateAccessToken(ctx context.Context, externalUserID string) (string, error)
}
