package conversation

import (
	"fmt"
	"strings"

	"fixmate_backend/internal/domain"
)

const (
	msgAskDescription  = "Please describe the problem you need fixed, e.g. \"My geyser is leaking\"."
	msgAskLocation     = "Thanks! Please share the location of the job using WhatsApp's 📎 > Location option."
	msgAskContact      = "Got it. Please reply with a contact number the fixer can call (e.g. 082 123 4567)."
	msgAddressNotFound = "We couldn't find that address. Please share a location pin using WhatsApp's 📎 > Location option, or send the street and suburb."
	msgInvalidContact  = "That doesn't look like a phone number. Please send a number of at least 10 digits, e.g. 082 123 4567."
	msgDescribeFirst   = "Thanks for the location! Please first tell us what needs fixing."
	msgCancelled       = "No problem, your request has been cancelled. Send us a message any time you need a fixer."
	msgTermsDeclined   = "No problem, we won't dispatch a fixer. Send us a message any time you need help."
	msgAskName         = "Let's get you registered. Please reply with your full name."
	msgInvalidName     = "Please reply with your full name, e.g. Thandi Mokoena."
	msgAskComment      = "Thank you! Any comments about the service? Just reply with a short message."
	msgRatingSkipped   = "Thanks for using FixMate!"
	msgFeedbackThanks  = "Thank you for your feedback. It helps us keep our fixers great!"
	msgRatePrompt      = "Your job has been completed. Please rate your fixer from 1 (poor) to 5 (excellent)."
	msgVoiceFailed     = "Sorry, we couldn't understand your voice note. Please type your message instead."
	msgTryAgain        = "Sorry, something went wrong on our side. Please try again in a few minutes."
)

func addressFoundMessage(label string) string {
	return fmt.Sprintf("📍 %s\n\n%s", label, msgAskContact)
}

func welcomeMessage(client domain.Client) string {
	return fmt.Sprintf("Hi %s! Welcome to FixMate 🔧\n\n"+
		"Reply with:\n"+
		"1. Request a fixer\n"+
		"2. Register\n\n"+
		"Or simply tell us what needs fixing.", client.DisplayName())
}

func termsMessage(step AwaitingTermsApproval) string {
	var b strings.Builder
	b.WriteString("Here is your request:\n")
	fmt.Fprintf(&b, "• Problem: %s\n", step.Description)
	fmt.Fprintf(&b, "• Service: %s\n", step.Category)
	fmt.Fprintf(&b, "• Contact: %s\n", step.ContactNumber)
	fmt.Fprintf(&b, "• Call-out fee: %s\n\n", formatRand(step.CallOutFeeCents))
	b.WriteString("The call-out fee covers the fixer's visit. Work and materials are quoted on site.\n")
	b.WriteString("Reply YES to accept these terms and dispatch a fixer, or anything else to cancel.")
	return b.String()
}

func dispatchMessages(result domain.DispatchResult) []string {
	job := result.Job
	var replies []string

	switch job.Status {
	case domain.JobAssigned:
		name := "a fixer"
		if result.Fixer != nil {
			name = result.Fixer.FullName
		}
		replies = append(replies, fmt.Sprintf(
			"Great news! We've sent your request (job #%d) to %s. We'll let you know as soon as they accept.",
			job.ID, name))
	case domain.JobAwaitingPayment:
		if result.PaymentURL != "" {
			return []string{fmt.Sprintf(
				"Your request has been logged (job #%d). Please pay the call-out fee of %s to dispatch a fixer:\n%s",
				job.ID, formatRand(job.AmountCents), result.PaymentURL)}
		}
		replies = append(replies, fmt.Sprintf(
			"Your request has been logged (job #%d). We'll send you a payment link shortly.", job.ID))
		return replies
	default:
		replies = append(replies, fmt.Sprintf(
			"Your request has been logged (job #%d). All our fixers are busy right now, we'll notify you as soon as one is available.",
			job.ID))
	}

	if result.PaymentURL != "" {
		replies = append(replies, fmt.Sprintf("You can pay the call-out fee of %s here:\n%s",
			formatRand(job.AmountCents), result.PaymentURL))
	}
	return replies
}

func registeredMessage(name string) string {
	return fmt.Sprintf("Thanks %s, you're registered! Tell us what needs fixing any time.", name)
}

func formatRand(cents int64) string {
	return fmt.Sprintf("R%d.%02d", cents/100, cents%100)
}
