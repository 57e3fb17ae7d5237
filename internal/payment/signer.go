// Package payment covers what the storefront does with the payment gateway: integrity
// signatures, widget configuration and widget results.
package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fjod/go_storefront/internal/cms"
)

var (
	ErrSignature      = errors.New("could not obtain payment signature")
	ErrMissingSecret  = errors.New("integrity secret not configured")
	ErrInvalidRequest = errors.New("reference and a positive amount are required")
)

// SignatureProvider returns the integrity signature the gateway checks against reference and amount.
type SignatureProvider interface {
	Sign(ctx context.Context, reference string, amountInCents int64, currency string) (string, error)
}

// IntegritySigner computes signatures locally from the integrity secret.
type IntegritySigner struct {
	secret string
}

func NewIntegritySigner(secret string) *IntegritySigner {
	return &IntegritySigner{secret: secret}
}

// Sign returns hex(sha256(reference + amountInCents + currency + secret)).
func (s *IntegritySigner) Sign(_ context.Context, reference string, amountInCents int64, currency string) (string, error) {
	if reference == "" || amountInCents <= 0 {
		return "", ErrInvalidRequest
	}
	if s.secret == "" {
		return "", ErrMissingSecret
	}
	sum := sha256.Sum256([]byte(reference + strconv.FormatInt(amountInCents, 10) + currency + s.secret))
	return hex.EncodeToString(sum[:]), nil
}

type Doer interface {
	Do(ctx context.Context, req cms.Request, out any) error
}

// SignatureClient asks a trusted remote endpoint for the signature.
type SignatureClient struct {
	remote Doer
}

// NewSignatureClient expects remote to be rooted at the signature endpoint itself.
func NewSignatureClient(remote Doer) *SignatureClient {
	return &SignatureClient{remote: remote}
}

type signatureRequest struct {
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amountInCents"`
	Currency      string `json:"currency"`
}

func (c *SignatureClient) Sign(ctx context.Context, reference string, amountInCents int64, currency string) (string, error) {
	var resp struct {
		Signature string `json:"signature"`
	}
	err := c.remote.Do(ctx, cms.Request{
		Method: http.MethodPost,
		Body:   signatureRequest{Reference: reference, AmountInCents: amountInCents, Currency: currency},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSignature, err)
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("%w: empty signature", ErrSignature)
	}
	return resp.Signature, nil
}
