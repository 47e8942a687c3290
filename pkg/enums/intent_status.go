package enums

import "fmt"

// IntentStatus tracks a payment intent through its lifecycle.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusConfirmed IntentStatus = "confirmed"
	IntentStatusExpired   IntentStatus = "expired"
)

var validIntentStatuses = []IntentStatus{
	IntentStatusPending,
	IntentStatusConfirmed,
	IntentStatusExpired,
}

// String implements fmt.Stringer.
func (s IntentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s IntentStatus) IsValid() bool {
	for _, candidate := range validIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s IntentStatus) IsTerminal() bool {
	return s == IntentStatusConfirmed || s == IntentStatusExpired
}

// ParseIntentStatus converts raw input into an IntentStatus.
func ParseIntentStatus(value string) (IntentStatus, error) {
	for _, candidate := range validIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent status %q", value)
}
