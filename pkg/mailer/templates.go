package mailer

import (
	"fmt"

	"github.com/SaifAzz/kiosk/pkg/outbox/payloads"
)

// PaymentReminderMessage renders the email sent after a credit purchase.
func PaymentReminderMessage(evt payloads.PaymentReminderEvent) Message {
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Your purchase of %s on %s has been recorded.\r\n"+
			"Your outstanding balance is now %s.\r\n\r\n"+
			"Please settle your balance with your local admin.\r\n",
		evt.Total.StringFixed(2),
		evt.PurchasedAt.Format("2 Jan 2006 15:04"),
		evt.Balance.StringFixed(2),
	)
	return Message{
		To:      evt.Email,
		Subject: "Kiosk purchase recorded",
		Body:    body,
	}
}

// OTPMessage renders the login code email.
func OTPMessage(evt payloads.OTPRequestedEvent) Message {
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Your login code is %s.\r\n"+
			"It expires at %s.\r\n\r\n"+
			"If you did not request this code you can ignore this email.\r\n",
		evt.Code,
		evt.ExpiresAt.Format("15:04 MST"),
	)
	return Message{
		To:      evt.Email,
		Subject: "Your kiosk login code",
		Body:    body,
	}
}

// BalanceSettledMessage confirms to a member that their balance was cleared.
func BalanceSettledMessage(evt payloads.BalanceSettledEvent) Message {
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Your outstanding balance of %s was settled on %s.\r\n"+
			"%d purchase(s) were marked as paid.\r\n\r\n"+
			"Thank you.\r\n",
		evt.Amount.StringFixed(2),
		evt.SettledAt.Format("2 Jan 2006 15:04"),
		evt.SettledTxns,
	)
	return Message{
		To:      evt.Email,
		Subject: "Kiosk balance settled",
		Body:    body,
	}
}
