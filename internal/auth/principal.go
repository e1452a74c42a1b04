package auth

import (
	"github.com/google/uuid"
	"github.com/lalith-99/chatelio/internal/models"
)

// Kind is the kind of authenticated party.
type Kind string

const (
	KindCompany Kind = "company"
	KindUser    Kind = "user"
	KindGuest   Kind = "guest"
)

func (k Kind) Valid() bool {
	return k == KindCompany || k == KindUser || k == KindGuest
}

// Principal is the resolved caller identity attached to a request.
//
// SubjectID is the company id for company principals, the user id for users
// and the guest session id for guests. CompanyID is always the tenant.
type Principal struct {
	CompanyID uuid.UUID
	SubjectID uuid.UUID
	Kind      Kind
}

// Owner returns the chat owner this principal acts as. Company principals
// never own chats and get the zero Owner.
func (p Principal) Owner() models.Owner {
	switch p.Kind {
	case KindUser:
		return models.UserOwner(p.SubjectID)
	case KindGuest:
		return models.GuestOwner(p.SubjectID)
	default:
		return models.Owner{}
	}
}

func CompanyPrincipal(companyID uuid.UUID) Principal {
	return Principal{CompanyID: companyID, SubjectID: companyID, Kind: KindCompany}
}

func UserPrincipal(companyID, userID uuid.UUID) Principal {
	return Principal{CompanyID: companyID, SubjectID: userID, Kind: KindUser}
}

func GuestPrincipal(companyID, sessionID uuid.UUID) Principal {
	return Principal{CompanyID: companyID, SubjectID: sessionID, Kind: KindGuest}
}
