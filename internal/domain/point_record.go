package domain

import "time"

// PointAction classifies a ledger entry
type PointAction string

const (
	ActionRegister       PointAction = "register"        // Registration bonus
	ActionDailyLogin     PointAction = "daily_login"     // First login of the day
	ActionPost           PointAction = "post"            // Forum post reward
	ActionComment        PointAction = "comment"         // Comment reward
	ActionHomeworkSubmit PointAction = "homework_submit" // Homework submission reward
	ActionHomeworkReview PointAction = "homework_review" // Homework review reward
	ActionInvite         PointAction = "invite"          // Invite reward
	ActionRecharge       PointAction = "recharge"        // Paid recharge
	ActionTaskReward     PointAction = "task_reward"     // Bounty task payout
	ActionAdminGrant     PointAction = "admin_grant"     // Manual adjustment by an admin
	ActionUnlockContent  PointAction = "unlock_content"  // Content unlock cost
	ActionUnlockTool     PointAction = "unlock_tool"     // Tool unlock cost
	ActionPublishTask    PointAction = "publish_task"    // Bounty task publish cost
	ActionTransfer       PointAction = "transfer"        // User to user transfer
)

var pointActions = map[PointAction]struct{}{
	ActionRegister: {}, ActionDailyLogin: {}, ActionPost: {}, ActionComment: {},
	ActionHomeworkSubmit: {}, ActionHomeworkReview: {}, ActionInvite: {}, ActionRecharge: {},
	ActionTaskReward: {}, ActionAdminGrant: {}, ActionUnlockContent: {}, ActionUnlockTool: {},
	ActionPublishTask: {}, ActionTransfer: {},
}

// Valid reports whether a is part of the fixed classification
func (a PointAction) Valid() bool {
	_, ok := pointActions[a]
	return ok
}

// DescriptionSize is the width of PointRecord.Description in characters
const DescriptionSize = 512

// PointRecord is the immutable audit row written with every balance change
type PointRecord struct {
	ID          uint        `gorm:"primaryKey" json:"id"`                 // Primary key
	UserID      uint        `gorm:"index;not null" json:"user_id"`        // Owner of the balance
	Action      PointAction `gorm:"size:32;index;not null" json:"action"` // Classification tag
	Delta       int64       `gorm:"not null" json:"delta"`                // Signed change
	Balance     int64       `gorm:"not null" json:"balance"`              // Balance after the change
	Description string      `gorm:"size:512" json:"description"`          // Free text, at most DescriptionSize runes
	ReferenceID *uint       `json:"reference_id,omitempty"`               // Triggering entity, if any
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`              // Timestamp
}
