package domain

// LinkPurpose scopes a signed link to one action.
type LinkPurpose string

const (
	LinkLogin         LinkPurpose = "login"
	LinkFixerOffer    LinkPurpose = "fixer_offer"
	LinkFixerComplete LinkPurpose = "fixer_complete"
)

// IsKnown reports whether p is a valid purpose.
func (p LinkPurpose) IsKnown() bool {
	switch p {
	case LinkLogin, LinkFixerOffer, LinkFixerComplete:
		return true
	}
	return false
}

// FixerLink is the verified content of a fixer action link.
type FixerLink struct {
	JobID   int64
	FixerID int64
	Purpose LinkPurpose
}
