package core

import (
	"context"
	"errors"
)

// Error taxonomy shared by the tracking components.
var (
	// ErrConfiguration reports a missing or blank required field. Surfaced, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrPermissionDenied reports a device capability the user refused. Surfaced, never retried.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrTransientNetwork reports a single failed request. Logged; the loop continues.
	ErrTransientNetwork = errors.New("transient network error")

	// ErrPaginationExhausted reports a cursor chain that hit the page cap or looped.
	ErrPaginationExhausted = errors.New("pagination exhausted")

	// ErrDecode reports a malformed inbound message or position record.
	ErrDecode = errors.New("decode error")

	// ErrInvalidArn reports a geofence collection ARN with no resolvable name.
	ErrInvalidArn = errors.New("invalid arn")
)

// Kind classifies an error against the taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindPermission
	KindTransientNetwork
	KindPaginationExhausted
	KindDecode
	KindInvalidArn
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "Configuration"
	case KindPermission:
		return "Permission"
	case KindTransientNetwork:
		return "TransientNetwork"
	case KindPaginationExhausted:
		return "PaginationExhausted"
	case KindDecode:
		return "Decode"
	case KindInvalidArn:
		return "InvalidArn"
	case KindCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// Classify maps err to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrPermissionDenied):
		return KindPermission
	case errors.Is(err, ErrPaginationExhausted):
		return KindPaginationExhausted
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrInvalidArn):
		return KindInvalidArn
	case errors.Is(err, ErrTransientNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindTransientNetwork
	default:
		return KindUnknown
	}
}
