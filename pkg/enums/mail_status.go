package enums

// MailStatus tracks delivery of the post-checkout receipt mail.
type MailStatus string

const (
	MailStatusPending MailStatus = "pending"
	MailStatusSent    MailStatus = "sent"
	MailStatusFailed  MailStatus = "failed"
	MailStatusSkipped MailStatus = "skipped"
)

var validMailStatuses = []MailStatus{
	MailStatusPending,
	MailStatusSent,
	MailStatusFailed,
	MailStatusSkipped,
}

// String implements fmt.Stringer.
func (m MailStatus) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MailStatus.
func (m MailStatus) IsValid() bool {
	for _, candidate := range validMailStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}
