package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGuest OwnerKind = "guest"
)

// Owner identifies who a chat belongs to: exactly one registered user or
// exactly one guest session. The zero value owns nothing.
type Owner struct {
	kind OwnerKind
	id   uuid.UUID
}

func UserOwner(userID uuid.UUID) Owner { return Owner{kind: OwnerUser, id: userID} }

func GuestOwner(sessionID uuid.UUID) Owner { return Owner{kind: OwnerGuest, id: sessionID} }

func (o Owner) Kind() OwnerKind { return o.kind }
func (o Owner) ID() uuid.UUID   { return o.id }

func (o Owner) Valid() bool {
	return (o.kind == OwnerUser || o.kind == OwnerGuest) && o.id != uuid.Nil
}

// UserID returns the owning user, or uuid.NullUUID{} for guest-owned chats.
func (o Owner) UserID() uuid.NullUUID {
	if o.kind != OwnerUser {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: o.id, Valid: true}
}

// SessionID returns the owning guest session, or uuid.NullUUID{} for user-owned chats.
func (o Owner) SessionID() uuid.NullUUID {
	if o.kind != OwnerGuest {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: o.id, Valid: true}
}

// OwnerFromColumns rebuilds an Owner from the nullable user_id/session_id pair.
func OwnerFromColumns(userID, sessionID uuid.NullUUID) (Owner, error) {
	switch {
	case userID.Valid && !sessionID.Valid:
		return UserOwner(userID.UUID), nil
	case sessionID.Valid && !userID.Valid:
		return GuestOwner(sessionID.UUID), nil
	default:
		return Owner{}, fmt.Errorf("chat must have exactly one owner (user=%v session=%v)", userID.Valid, sessionID.Valid)
	}
}

func (o Owner) String() string {
	return string(o.kind) + ":" + o.id.String()
}

func (o Owner) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind OwnerKind `json:"kind"`
		ID   uuid.UUID `json:"id"`
	}{o.kind, o.id})
}
