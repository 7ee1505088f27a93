package email

const (
	subjectJobNeedsAttentionFmt = "Job #%d needs a fixer"
	subjectDeliveryFailedFmt    = "WhatsApp delivery to %s failed"
)
