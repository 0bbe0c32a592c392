package services

import (
	"regexp"

	"raffle-system/models"

	"github.com/pocketbase/pocketbase/core"
)

const (
	RoleCustomer  = "customer"
	RoleOrganizer = "organizer"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// Identity is the caller of an operation: either an authenticated user
// record or a guest identified solely by the phone number they supplied
// with the request.
type Identity struct {
	Record *core.Record
	Phone  string
}

func AuthIdentity(record *core.Record, phone string) Identity {
	return Identity{Record: record, Phone: phone}
}

func (id Identity) IsAuthenticated() bool {
	return id.Record != nil
}

func (id Identity) UserID() string {
	if id.Record == nil {
		return ""
	}
	return id.Record.Id
}

func (id Identity) Role() string {
	if id.Record == nil {
		return ""
	}
	return id.Record.GetString("user_type")
}

// Organizes reports whether the caller is the organizer of the raffle.
func (id Identity) Organizes(raffle *models.Raffle) bool {
	return id.IsAuthenticated() && raffle.OrganizerID == id.UserID()
}

// Owns reports whether the caller may act on the purchase as its buyer:
// the purchase's own customer, or a guest whose supplied phone matches the
// purchase's guest phone exactly.
func (id Identity) Owns(purchase *models.Purchase) bool {
	if id.IsAuthenticated() {
		return purchase.CustomerID == id.UserID()
	}
	return purchase.IsGuest() && id.Phone != "" && id.Phone == purchase.GuestPhone
}

// CanManage widens Owns with the raffle organizer, who may cancel or upload
// on behalf of any buyer of their raffle.
func (id Identity) CanManage(purchase *models.Purchase, raffle *models.Raffle) bool {
	return id.Owns(purchase) || id.Organizes(raffle)
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
