//go:generate mockgen -destination=mock_notify.go -package=notify bidbot/internal/notify Notifier

// Package notify delivers user-facing notifications. Every entry point is
// fire-and-forget from the caller's point of view: failures are reported to the
// caller for logging and never undo the operation that triggered them.
package notify

import (
	"context"
	"fmt"
)

// Notifier is the set of notifications the auction emits
type Notifier interface {
	NotifyNewHighBid(ctx context.Context, bidderID, itemName string, amount float64) error
	NotifyWelcome(ctx context.Context, userID string) error
	NotifyPasswordReset(ctx context.Context, userID, newPassword string) error
	NotifyAuctionWon(ctx context.Context, bidderID, itemName string, amount float64) error
}

// Message is one rendered email
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Message kinds
const (
	KindNewHighBid    = "new_high_bid"
	KindWelcome       = "welcome"
	KindPasswordReset = "password_reset"
	KindAuctionWon    = "auction_won"
)

// Sender transports a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders notifications into messages addressed to the user identity,
// which is the user's email.
type Mailer struct {
	sender Sender
}

// NewMailer creates a Mailer on top of sender
func NewMailer(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: failed to send %s message to %s: %w", msg.Kind, msg.To, err)
	}
	return nil
}

// NotifyNewHighBid tells a bidder their bid is now the highest
func (m *Mailer) NotifyNewHighBid(ctx context.Context, bidderID, itemName string, amount float64) error {
	return m.send(ctx, Message{
		Kind:    KindNewHighBid,
		To:      bidderID,
		Subject: fmt.Sprintf("You are the highest bidder on %s", itemName),
		Body: fmt.Sprintf(
			"Your bid of %.2f on %s was accepted and is currently winning.\n"+
				"We will let you know if the auction closes with your bid on top.",
			amount, itemName),
	})
}

// NotifyWelcome greets a newly registered user
func (m *Mailer) NotifyWelcome(ctx context.Context, userID string) error {
	return m.send(ctx, Message{
		Kind:    KindWelcome,
		To:      userID,
		Subject: "Welcome to BidBot",
		Body:    "Your account is ready. List an item or place your first bid.",
	})
}

// NotifyPasswordReset sends a freshly generated password
func (m *Mailer) NotifyPasswordReset(ctx context.Context, userID, newPassword string) error {
	return m.send(ctx, Message{
		Kind:    KindPasswordReset,
		To:      userID,
		Subject: "Your BidBot password was reset",
		Body:    fmt.Sprintf("Your new password is: %s\nPlease change it after logging in.", newPassword),
	})
}

// NotifyAuctionWon congratulates the holder of the winning bid after close
func (m *Mailer) NotifyAuctionWon(ctx context.Context, bidderID, itemName string, amount float64) error {
	return m.send(ctx, Message{
		Kind:    KindAuctionWon,
		To:      bidderID,
		Subject: fmt.Sprintf("You won %s", itemName),
		Body:    fmt.Sprintf("Congratulations! The auction for %s closed with your winning bid of %.2f.", itemName, amount),
	})
}
