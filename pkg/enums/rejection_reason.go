package enums

import "fmt"

// RejectionReason names the product policy a requested quantity violated.
type RejectionReason string

const (
	RejectionReasonProductUnavailable RejectionReason = "product_unavailable"
	RejectionReasonBelowMinimum       RejectionReason = "below_minimum"
	RejectionReasonAboveMaximum       RejectionReason = "above_maximum"
)

var validRejectionReasons = []RejectionReason{
	RejectionReasonProductUnavailable,
	RejectionReasonBelowMinimum,
	RejectionReasonAboveMaximum,
}

// String implements fmt.Stringer.
func (r RejectionReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RejectionReason.
func (r RejectionReason) IsValid() bool {
	for _, candidate := range validRejectionReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRejectionReason converts raw input into a RejectionReason.
func ParseRejectionReason(value string) (RejectionReason, error) {
	for _, candidate := range validRejectionReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rejection reason %q", value)
}
