package pokeapi

import (
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindStatus     Kind = "status"
	KindValidation Kind = "validation"
	KindAborted    Kind = "aborted"
)

// FetchError describes a failed fetch of one name.
type FetchError struct {
	Name       string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	var msg string
	switch e.Kind {
	case KindStatus:
		msg = fmt.Sprintf("HTTP %d for %q", e.StatusCode, e.Name)
	case KindTimeout:
		msg = fmt.Sprintf("request timeout for %q", e.Name)
	case KindNetwork:
		msg = fmt.Sprintf("network error fetching %q", e.Name)
	case KindValidation:
		msg = fmt.Sprintf("API response validation failed for %q", e.Name)
	case KindAborted:
		msg = fmt.Sprintf("request aborted for %q", e.Name)
	default:
		msg = fmt.Sprintf("failed to fetch %q", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient is true for failures a later attempt may not hit: no response,
// timeouts, 429 and 5xx.
func (e *FetchError) Transient() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout:
		return true
	case KindStatus:
		return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode <= 599)
	default:
		return false
	}
}
