package services

import (
	"fmt"
	"sort"
	"time"

	"raffle-system/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
)

type NumberState string

const (
	NumberAvailable NumberState = "available"
	NumberReserved  NumberState = "reserved"
	NumberPaid      NumberState = "paid"
)

// NumberClaim is one detail row joined with its parent purchase, the unit
// the takenness predicate operates on.
type NumberClaim struct {
	Number         int
	DetailStatus   models.Status
	PurchaseStatus models.Status
	ExpiresAt      time.Time
	PurchaseID     string
	BuyerName      string
}

type NumberInfo struct {
	Number     int         `json:"number"`
	Status     NumberState `json:"status"`
	PurchaseID string      `json:"purchase_id,omitempty"`
	BuyerName  string      `json:"buyer_name,omitempty"`
}

type Availability struct {
	RaffleID     string              `json:"raffle_id"`
	RangeStart   int                 `json:"range_start"`
	RangeEnd     int                 `json:"range_end"`
	TotalNumbers int                 `json:"total_numbers"`
	Summary      map[NumberState]int `json:"summary"`
	Numbers      []NumberInfo        `json:"numbers"`
	TakenNumbers []int               `json:"taken_numbers"`
}

// Taken reports whether the claim currently holds its number. A number is
// taken iff its detail is pending or paid, the parent purchase is neither
// canceled nor expired, and a pending purchase has not outlived its
// reservation window. A pending detail under a paid purchase stays taken.
func (c NumberClaim) Taken(now time.Time) bool {
	if c.DetailStatus != models.StatusPending && c.DetailStatus != models.StatusPaid {
		return false
	}
	switch c.PurchaseStatus {
	case models.StatusCanceled, models.StatusExpired:
		return false
	case models.StatusPending:
		return c.ExpiresAt.After(now)
	default:
		return true
	}
}

func (c NumberClaim) state() NumberState {
	if c.DetailStatus == models.StatusPaid {
		return NumberPaid
	}
	return NumberReserved
}

// BuildAvailability derives the full per-number view of a raffle from the
// current claims. Paid wins over reserved when claims overlap (a released
// number re-sold and later paid).
func BuildAvailability(raffle *models.Raffle, claims []NumberClaim, now time.Time) *Availability {
	byNumber := make(map[int]NumberClaim)
	for _, claim := range claims {
		if !claim.Taken(now) {
			continue
		}
		if prev, ok := byNumber[claim.Number]; ok && prev.state() == NumberPaid {
			continue
		}
		byNumber[claim.Number] = claim
	}

	availability := &Availability{
		RaffleID:     raffle.ID,
		RangeStart:   raffle.NumberStart,
		RangeEnd:     raffle.NumberEnd,
		TotalNumbers: raffle.TotalNumbers(),
		Summary: map[NumberState]int{
			NumberAvailable: 0,
			NumberReserved:  0,
			NumberPaid:      0,
		},
		Numbers:      make([]NumberInfo, 0, raffle.TotalNumbers()),
		TakenNumbers: make([]int, 0, len(byNumber)),
	}

	for number := raffle.NumberStart; number <= raffle.NumberEnd; number++ {
		info := NumberInfo{Number: number, Status: NumberAvailable}
		if claim, ok := byNumber[number]; ok {
			info.Status = claim.state()
			info.PurchaseID = claim.PurchaseID
			info.BuyerName = claim.BuyerName
			availability.TakenNumbers = append(availability.TakenNumbers, number)
		}
		availability.Summary[info.Status]++
		availability.Numbers = append(availability.Numbers, info)
	}

	sort.Ints(availability.TakenNumbers)
	return availability
}

// AvailabilityService is the read side of number inventory. It never caches:
// every call re-derives takenness from the current ticket state.
type AvailabilityService struct{}

func NewAvailabilityService() *AvailabilityService {
	return &AvailabilityService{}
}

type claimRow struct {
	Number         int            `db:"number"`
	DetailStatus   string         `db:"detail_status"`
	PurchaseID     string         `db:"purchase_id"`
	PurchaseStatus string         `db:"purchase_status"`
	ExpiresAt      types.DateTime `db:"expires_at"`
	BuyerName      string         `db:"buyer_name"`
}

const claimQuery = `
	SELECT
		d.number AS number,
		d.status AS detail_status,
		p.id AS purchase_id,
		p.status AS purchase_status,
		p.expires_at AS expires_at,
		COALESCE(NULLIF(p.guest_name, ''), NULLIF(u.name, ''), u.email, '') AS buyer_name
	FROM purchase_details d
	INNER JOIN purchases p ON d.purchase = p.id
	LEFT JOIN users u ON p.customer = u.id
	WHERE p.raffle = {:raffleId}
	ORDER BY d.number ASC
`

// LoadClaims fetches every claim row for a raffle through the given builder,
// so it works both on the live connection and inside a transaction.
func LoadClaims(db dbx.Builder, raffleID string) ([]NumberClaim, error) {
	rows := []claimRow{}
	err := db.NewQuery(claimQuery).Bind(dbx.Params{"raffleId": raffleID}).All(&rows)
	if err != nil {
		return nil, fmt.Errorf("load claims for raffle %s: %w", raffleID, err)
	}

	claims := make([]NumberClaim, 0, len(rows))
	for _, row := range rows {
		claims = append(claims, NumberClaim{
			Number:         row.Number,
			DetailStatus:   models.Status(row.DetailStatus),
			PurchaseStatus: models.Status(row.PurchaseStatus),
			ExpiresAt:      row.ExpiresAt.Time(),
			PurchaseID:     row.PurchaseID,
			BuyerName:      row.BuyerName,
		})
	}
	return claims, nil
}

func (s *AvailabilityService) ForRaffle(db dbx.Builder, raffle *models.Raffle) (*Availability, error) {
	claims, err := LoadClaims(db, raffle.ID)
	if err != nil {
		return nil, err
	}
	return BuildAvailability(raffle, claims, time.Now()), nil
}

// TakenSet is the reservation-side view: just the set of numbers that are
// currently held, keyed for overlap checks.
func TakenSet(db dbx.Builder, raffleID string, now time.Time) (map[int]bool, error) {
	claims, err := LoadClaims(db, raffleID)
	if err != nil {
		return nil, err
	}

	taken := make(map[int]bool, len(claims))
	for _, claim := range claims {
		if claim.Taken(now) {
			taken[claim.Number] = true
		}
	}
	return taken, nil
}
