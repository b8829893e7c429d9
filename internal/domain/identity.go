package domain

import "strings"

// Profile holds display attributes. Nothing here is security relevant.
type Profile struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Bio    string `json:"bio,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Identity is the authenticated actor as seen by one client session.
// Values handed out by the session store are snapshots; mutating one has no
// effect on the store.
type Identity struct {
	UserID              string
	Address             string
	Token               string
	Role                Role
	Profile             Profile
	PermissionOverrides []Capability
}

// Authenticated reports whether both a credential and a role are present.
func (i Identity) Authenticated() bool {
	return i.Token != "" && i.Role.Valid()
}

// Is reports whether ref names this identity by user ID or by address.
func (i Identity) Is(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || !i.Authenticated() {
		return false
	}
	if i.UserID != "" && ref == i.UserID {
		return true
	}
	return i.Address != "" && SameAddress(ref, i.Address)
}

// Clone returns a deep copy.
func (i Identity) Clone() Identity {
	out := i
	if i.PermissionOverrides != nil {
		out.PermissionOverrides = append([]Capability(nil), i.PermissionOverrides...)
	}
	return out
}

// IdentityFromUser builds an identity for user holding token.
func IdentityFromUser(user User, token string) Identity {
	return Identity{
		UserID:              user.ID,
		Address:             user.Address,
		Token:               token,
		Role:                user.Role,
		Profile:             user.Profile,
		PermissionOverrides: append([]Capability(nil), user.Permissions...),
	}
}
