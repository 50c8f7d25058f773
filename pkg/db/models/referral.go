package models

import (
	"time"

	"github.com/google/uuid"
)

// Referral is a directed edge in the referral graph. Level 1 is the direct
// recruiter; levels 2 and 3 are materialized ancestors written when the child
// is recruited, capped at three levels.
type Referral struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentID  uuid.UUID `gorm:"column:parent_id;type:uuid;not null;index;uniqueIndex:uq_referrals_edge,priority:1"`
	ChildID   uuid.UUID `gorm:"column:child_id;type:uuid;not null;index;uniqueIndex:uq_referrals_edge,priority:2"`
	Level     int       `gorm:"column:level;not null;uniqueIndex:uq_referrals_edge,priority:3"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
