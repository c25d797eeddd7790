// Package payment implements payment initialization and the
// idempotent reconciliation of asynchronous gateway results with the
// local booking lifecycle.
package payment

import "context"

// InitializeRequest carries the fields the gateway needs to set up a
// transaction.  Amounts are in kobo (the gateway's minor unit).
type InitializeRequest struct {
	Email       string // customer email shown in the gateway checkout
	AmountKobo  int64  // charge amount in kobo
	Reference   string // our unique opaque reference for this attempt
	CallbackURL string // where the gateway redirects the customer
}

// InitializeResult is the redirect handle returned by the gateway.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the authoritative transaction state reported by the
// gateway for a reference.  Only the fields the reconciler depends on
// are modelled.
type VerifyResult struct {
	Reference  string // echoed reference
	Status     string // gateway status string, "success" when paid
	AmountKobo int64  // settled amount in kobo
}

// Success reports whether the gateway settled the transaction.
func (v *VerifyResult) Success() bool { return v.Status == "success" }

// Gateway is the interface to the external payment provider.  The
// production implementation talks to Paystack; tests substitute a
// fake.
type Gateway interface {
	// Initialize asks the gateway to set up a transaction and
	// returns the checkout redirect for the customer.
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	// Verify queries the authoritative status of a reference.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)
}
