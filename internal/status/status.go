package status

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRaffleNotSellable  = errors.New("raffle: not currently on sale")
	ErrDuplicateNumbers   = errors.New("reservation: duplicate numbers are not allowed")
	ErrEmptyNumbers       = errors.New("reservation: at least one number is required")
	ErrGuestInfoRequired  = errors.New("reservation: guest phone number is required")
	ErrInvalidPhoneFormat = errors.New("identity: phone must be exactly 10 digits")
	ErrPermissionDenied   = errors.New("identity: permission denied")
	ErrCannotCancelPaid   = errors.New("purchase: a paid purchase cannot be canceled")
	ErrInvalidAction      = errors.New("verification: action must be approve or reject")
	ErrVerificationClosed = errors.New("verification: already decided")
	ErrReceiptRequired    = errors.New("verification: receipt image is required")
	ErrNoPayableNumbers   = errors.New("verification: no payable numbers left on this purchase")
	ErrReservationLapsed  = errors.New("verification: reservation window has lapsed")

	ErrNumberOutOfRange     = errors.New("number out of range")
	ErrNumberUnavailable    = errors.New("number not available")
	ErrNumbersNotInOrder    = errors.New("numbers do not belong to this purchase")
	ErrNumberInVerification = errors.New("numbers already pending verification")
)

// NumberError reports which numbers caused a reservation or verification
// conflict so the boundary can render a field-level message.
type NumberError struct {
	Numbers []int
	Reason  error
}

func NewNumberError(reason error, numbers ...int) *NumberError {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	return &NumberError{Numbers: sorted, Reason: reason}
}

func (e *NumberError) Error() string {
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%v: %s", e.Reason, strings.Join(parts, ", "))
}

func (e *NumberError) Unwrap() error {
	return e.Reason
}
