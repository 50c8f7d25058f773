package enums

// SubscriptionStatus is derived from the subscription timestamps and synced
// back to storage opportunistically on read.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusGrace    SubscriptionStatus = "grace"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusGrace, SubscriptionStatusExpired, SubscriptionStatusCanceled:
		return true
	}
	return false
}

// Entitles reports whether the status still grants plan benefits.
func (s SubscriptionStatus) Entitles() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusGrace
}
