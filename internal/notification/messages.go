package notification

import (
	"fmt"
	"strings"

	"fixmate_backend/internal/events"
)

func formatRand(cents int64) string {
	return fmt.Sprintf("R%d.%02d", cents/100, cents%100)
}

func fixerOfferMessage(e events.JobDispatched) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔧 New FixMate job #%d (%s)\n\n", e.JobID, e.Category)
	fmt.Fprintf(&b, "%s\n\n", e.Description)
	contact := e.ClientContact
	if contact == "" {
		contact = e.ClientPhone
	}
	if contact != "" {
		fmt.Fprintf(&b, "Client contact: %s\n\n", contact)
	}
	if e.OfferURL != "" {
		fmt.Fprintf(&b, "View the job and accept or decline here:\n%s", e.OfferURL)
	} else {
		b.WriteString("Log in to FixMate to accept or decline this job.")
	}
	return b.String()
}

func clientDispatchedMessage(e events.JobDispatched) string {
	return fmt.Sprintf("Good news! Your job #%d has been sent to %s. We'll let you know as soon as they accept.",
		e.JobID, e.FixerName)
}

func clientUnassignedMessage(e events.JobUnassigned) string {
	return fmt.Sprintf("We're still looking for a fixer for job #%d. Our team has been alerted and will assign one as soon as possible.",
		e.JobID)
}

func clientAcceptedMessage(e events.JobAccepted) string {
	return fmt.Sprintf("✅ %s has accepted your job #%d and will contact you shortly.\nFixer contact: %s\nTracking reference: %s",
		e.FixerName, e.JobID, e.FixerPhone, e.TrackingReference)
}

func fixerAcceptedMessage(e events.JobAccepted) string {
	msg := fmt.Sprintf("You accepted job #%d (ref %s). Please contact the client as soon as possible.",
		e.JobID, e.TrackingReference)
	if e.CompleteURL != "" {
		msg += "\n\nWhen the work is done, mark it complete here:\n" + e.CompleteURL
	}
	return msg
}

func fixerCompletedMessage(e events.JobCompleted) string {
	return fmt.Sprintf("Thanks! Job #%d (ref %s) is marked complete. A platform fee of %s has been deducted from your balance.",
		e.JobID, e.TrackingReference, formatRand(e.FeeCents))
}

func clientCancelledMessage(e events.JobCancelled) string {
	msg := fmt.Sprintf("Your job #%d has been cancelled.", e.JobID)
	if e.Reason != "" {
		msg += " Reason: " + e.Reason + "."
	}
	return msg + " Send us a message any time you need a fixer."
}

func fixerCancelledMessage(e events.JobCancelled) string {
	return fmt.Sprintf("Job #%d has been cancelled. You no longer need to attend it.", e.JobID)
}

func paymentReceivedMessage(e events.PaymentReceived) string {
	return fmt.Sprintf("We received your payment of %s for job #%d. Thank you!", formatRand(e.AmountCents), e.JobID)
}

func loginLinkMessage(e events.LoginLinkRequested) string {
	return fmt.Sprintf("Your FixMate login link:\n%s\n\nIt can be used once and expires soon. If you didn't ask for it, ignore this message.", e.URL)
}
