package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateEvent    = errors.New("duplicate event")
	ErrInvalidSignature  = errors.New("invalid signature")
	ErrUnknownCategory   = errors.New("unknown category")
)

// InsufficientCreditsError is returned by the balance pre-check when a user
// cannot afford the requested generation. It carries the numbers the client
// needs to render a purchase prompt.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// ProviderRejectedError signals that the generation provider explicitly
// declined the input (content policy, malformed image). It is terminal and
// must not be retried.
type ProviderRejectedError struct {
	Provider string
	Code     string
	Message  string
}

func (e *ProviderRejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s rejected request: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s rejected request: %s", e.Provider, e.Message)
}
