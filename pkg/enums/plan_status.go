package enums

// PlanStatus marks whether a subscription tier can still be purchased.
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

func (s PlanStatus) String() string {
	return string(s)
}

func (s PlanStatus) IsValid() bool {
	return s == PlanStatusActive || s == PlanStatusArchived
}
