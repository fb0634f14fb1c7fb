package enums

import "fmt"

// IdentityKind tells whether a cart belongs to an anonymous session or a signed-in user.
type IdentityKind string

const (
	IdentityKindGuest IdentityKind = "guest"
	IdentityKindUser  IdentityKind = "user"
)

var validIdentityKinds = []IdentityKind{
	IdentityKindGuest,
	IdentityKindUser,
}

// String implements fmt.Stringer.
func (k IdentityKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known IdentityKind.
func (k IdentityKind) IsValid() bool {
	for _, candidate := range validIdentityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseIdentityKind converts raw input into an IdentityKind.
func ParseIdentityKind(value string) (IdentityKind, error) {
	for _, candidate := range validIdentityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid identity kind %q", value)
}
