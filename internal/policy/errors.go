package policy

import "strings"

// ConfigurationError reports a malformed policy document. It is fatal: it is
// raised at load time, before any evaluation occurs, and carries every
// problem found so users can fix a document in one pass.
type ConfigurationError struct {
	Errs []error
}

func (e *ConfigurationError) Error() string {
	if len(e.Errs) == 0 {
		return "invalid policy"
	}
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "invalid policy: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the individual validation errors to errors.Is / errors.As.
func (e *ConfigurationError) Unwrap() []error { return e.Errs }
