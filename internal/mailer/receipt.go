package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/GolfLocker/golf-locker-pos/internal/receipts"
)

// ReceiptMailer composes and sends the post-checkout receipt mail.
type ReceiptMailer struct {
	sender    Sender
	storeName string
}

// NewReceiptMailer constructs a receipt mailer on top of any Sender.
func NewReceiptMailer(sender Sender, storeName string) (*ReceiptMailer, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if storeName == "" {
		storeName = "Golf Locker"
	}
	return &ReceiptMailer{sender: sender, storeName: storeName}, nil
}

func (m *ReceiptMailer) SendReceipt(ctx context.Context, to string, receipt *receipts.Receipt) error {
	return m.sender.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("%s receipt %s", m.storeName, receipt.Head.ReceiptNo),
		Body:    composeReceiptBody(m.storeName, receipt),
	})
}

func composeReceiptBody(storeName string, receipt *receipts.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", storeName)
	fmt.Fprintf(&b, "Receipt %s\n", receipt.Head.ReceiptNo)
	fmt.Fprintf(&b, "Issued %s\n\n", receipt.Head.IssuedAt.Format("2006-01-02 15:04"))

	for _, line := range receipt.Lines {
		fmt.Fprintf(&b, "%-12s %3dx €%8s  €%8s  %s\n",
			line.SKU, line.Quantity, line.UnitPrice.StringFixed(2), line.LineTotal.StringFixed(2), line.Description)
	}

	fmt.Fprintf(&b, "\nSubtotal  €%s\n", receipt.Head.Subtotal.StringFixed(2))
	if receipt.Head.Discount.IsPositive() {
		fmt.Fprintf(&b, "Discount  -€%s\n", receipt.Head.Discount.StringFixed(2))
	}
	if receipt.Head.GiftCardUsed.IsPositive() {
		fmt.Fprintf(&b, "Gift card -€%s\n", receipt.Head.GiftCardUsed.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total     €%s\n", receipt.Head.Total.StringFixed(2))

	if receipt.Head.TicketURL != "" {
		fmt.Fprintf(&b, "\nYour ticket: %s\n", receipt.Head.TicketURL)
	}
	return b.String()
}
