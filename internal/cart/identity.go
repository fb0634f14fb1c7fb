package cart

import (
	"strings"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
)

const (
	userCartPrefix  = "user:"
	guestCartPrefix = "guest:"
)

// Identity names the owner of a cart. Exactly one of UserID and SessionToken is set.
type Identity struct {
	Kind         enums.IdentityKind
	UserID       string
	SessionToken string
}

func UserIdentity(userID string) Identity {
	return Identity{Kind: enums.IdentityKindUser, UserID: strings.TrimSpace(userID)}
}

func GuestIdentity(sessionToken string) Identity {
	return Identity{Kind: enums.IdentityKindGuest, SessionToken: strings.TrimSpace(sessionToken)}
}

// ResolveIdentity picks the cart owner for a caller. A user id takes precedence
// over a session token; the resolver never mints tokens.
func ResolveIdentity(userID, sessionToken string) (Identity, error) {
	userID = strings.TrimSpace(userID)
	sessionToken = strings.TrimSpace(sessionToken)
	switch {
	case userID != "":
		return UserIdentity(userID), nil
	case sessionToken != "":
		return GuestIdentity(sessionToken), nil
	default:
		return Identity{}, errInvalidIdentity()
	}
}

// CartID is the deterministic cart key, "user:<id>" or "guest:<token>".
func (i Identity) CartID() string {
	if i.Kind == enums.IdentityKindUser {
		return userCartPrefix + i.UserID
	}
	return guestCartPrefix + i.SessionToken
}

func (i Identity) IsGuest() bool {
	return i.Kind == enums.IdentityKindGuest
}

func (i Identity) validate() error {
	switch i.Kind {
	case enums.IdentityKindUser:
		if strings.TrimSpace(i.UserID) != "" {
			return nil
		}
	case enums.IdentityKindGuest:
		if strings.TrimSpace(i.SessionToken) != "" {
			return nil
		}
	}
	return errInvalidIdentity()
}

func errInvalidIdentity() error {
	return pkgerrors.New(pkgerrors.CodeInvalidIdentity, "user id or session token is required")
}
