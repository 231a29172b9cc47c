package model

import "errors"

var (
	// ErrNoMessages is returned when a request carries no messages.
	ErrNoMessages = errors.New("no messages provided")

	// ErrNoResponse is returned by Collect when generation ended without a final response.
	ErrNoResponse = errors.New("model returned no final response")
)

var (
	// ErrNoStructuredOutput is returned when a structured call yields no content.
	ErrNoStructuredOutput = errors.New("model returned no structured output")

	// ErrInvalidStructuredOutput is returned when a structured reply cannot be
	// decoded into the requested type or has more than one choice.
	ErrInvalidStructuredOutput = errors.New("invalid structured output")
)
