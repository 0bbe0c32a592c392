package services

import (
	"fmt"
	"log/slog"

	"raffle-system/models"

	pubnub "github.com/pubnub/go"
)

// Notifier pushes verification decisions to the buyer's realtime channel.
// Delivery is best effort: a nil Notifier or a publish failure never affects
// the decision itself.
type Notifier struct {
	client *pubnub.PubNub
}

func NewNotifier(client *pubnub.PubNub) *Notifier {
	return &Notifier{client: client}
}

// buyerChannel routes registered customers by id and guests by phone.
func buyerChannel(purchase *models.Purchase) string {
	if purchase.CustomerID != "" {
		return fmt.Sprintf("user-%s", purchase.CustomerID)
	}
	return fmt.Sprintf("guest-%s", purchase.GuestPhone)
}

func (n *Notifier) VerificationDecided(purchase *models.Purchase, receipt *models.PaymentReceipt) {
	if n == nil || n.client == nil {
		return
	}

	channel := buyerChannel(purchase)
	_, _, err := n.client.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":             "verification_decided",
			"purchase_id":      purchase.ID,
			"payment_id":       receipt.PaymentID,
			"decision":         string(receipt.VerificationStatus),
			"selected_numbers": receipt.SelectedNumbers,
		}).
		Execute()
	if err != nil {
		slog.Warn("Verification notification failed",
			"channel", channel,
			"payment_id", receipt.PaymentID,
			"error", err,
		)
	}
}
