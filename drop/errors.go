package drop

import "errors"

// Error kinds surfaced by the engine and factory. Every rejection leaves the
// drop untouched, so each of them is recoverable by correcting and resubmitting.
var (
	ErrAuthorization       = errors.New("caller is not the drop authority")
	ErrAccessGate          = errors.New("needs to be an allowed minter")
	ErrSupplyExhausted     = errors.New("edition supply exhausted")
	ErrQuantityLimit       = errors.New("per-caller mint limit exceeded")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInvalidArgument     = errors.New("invalid argument")
)
