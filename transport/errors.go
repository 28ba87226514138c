package transport

import "fmt"

// UnsupportedConfigError reports an Options field a backend cannot
// honor, with a suggestion for the caller.
type UnsupportedConfigError struct {
	Feature    string
	Provider   string
	Suggestion string
}

func (e *UnsupportedConfigError) Error() string {
	msg := fmt.Sprintf("%s does not support %s", e.Provider, e.Feature)
	if e.Suggestion != "" {
		msg += ": " + e.Suggestion
	}
	return msg
}

// MinTokensError reports a MaxTokens setting below the backend minimum.
type MinTokensError struct {
	Provider  string
	Minimum   int64
	Requested int64
}

func (e *MinTokensError) Error() string {
	return fmt.Sprintf("%s requires at least %d output tokens, got %d", e.Provider, e.Minimum, e.Requested)
}
