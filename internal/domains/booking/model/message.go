package model

import (
	"fmt"
	"net/url"
	"regexp"
	"roombook/shared/constant"
	"roombook/shared/timezone"
	"strings"
)

const (
	waMeBaseURL = "https://wa.me/"

	linkPathConfirm = "/v1/links/confirm"
	linkPathCancel  = "/v1/links/cancel"
)

var nonDigits = regexp.MustCompile(`\D`)

// Links are the self-service URLs carried in booking messages.
type Links struct {
	Confirm string `json:"confirm"`
	Cancel  string `json:"cancel"`
}

func BuildLinks(baseURL, token string) Links {
	query := url.Values{constant.RequestParamToken: []string{token}}.Encode()
	base := strings.TrimRight(baseURL, "/")

	return Links{
		Confirm: base + linkPathConfirm + "?" + query,
		Cancel:  base + linkPathCancel + "?" + query,
	}
}

// ConfirmationMessage is the text a guest sends back to confirm the booking.
func (b Booking) ConfirmationMessage(links Links) string {
	var sb strings.Builder

	sb.WriteString("Hello, I would like to confirm this booking:\n")
	fmt.Fprintf(&sb, "- Room: %s\n", b.Room)
	fmt.Fprintf(&sb, "- Event: %s\n", b.Title)
	fmt.Fprintf(&sb, "- Start: %s\n", timezone.Format(b.StartAt, constant.HumanFormat))
	fmt.Fprintf(&sb, "- End: %s\n", timezone.Format(b.EndAt, constant.HumanFormat))
	fmt.Fprintf(&sb, "- People: %d\n", b.Attendees)
	fmt.Fprintf(&sb, "- Confirm: %s\n", links.Confirm)
	fmt.Fprintf(&sb, "- Cancel: %s\n", links.Cancel)
	fmt.Fprintf(&sb, "- Code: %s", b.ConfirmationToken)

	return sb.String()
}

func (b Booking) ReminderMessage() string {
	return fmt.Sprintf("Reminder: %s (%s) in %s\nStart: %s\nPeople: %d\nSee you there!",
		b.Title, b.Organizer, b.Room, timezone.Format(b.StartAt, constant.HumanFormat), b.Attendees)
}

// WhatsAppDigits strips everything but digits, which is the number format wa.me expects.
func WhatsAppDigits(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// WhatsAppLink builds a click-to-chat link that opens a chat with phone and
// text prefilled.
func WhatsAppLink(phone, text string) string {
	return waMeBaseURL + WhatsAppDigits(phone) + "?" + url.Values{"text": []string{text}}.Encode()
}
