package domain

import "time"

// Role is the authorization level of a user
type Role string

const (
	RoleUser       Role = "user"        // Regular member
	RoleSenior     Role = "senior"      // May review homework
	RoleAdmin      Role = "admin"       // Platform administrator
	RoleSuperAdmin Role = "super_admin" // May change other users' roles
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSenior, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r grants access to admin routes
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User Model
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`                            // Primary key
	Username          string     `gorm:"size:50;uniqueIndex;not null" json:"username"`    // Unique username
	Email             string     `gorm:"size:100;uniqueIndex;not null" json:"email"`      // Unique email
	Phone             *string    `gorm:"size:20;uniqueIndex" json:"phone,omitempty"`      // Optional unique phone
	Password          string     `gorm:"size:255;not null" json:"-"`                      // Hashed password
	Nickname          string     `gorm:"size:50" json:"nickname"`                         // Display name
	Role              Role       `gorm:"size:20;not null" json:"role"`                    // Authorization level
	Points            int64      `gorm:"not null;default:0" json:"points"`                // Spendable balance
	TotalPointsEarned int64      `gorm:"not null;default:0" json:"total_points_earned"`   // Sum of all positive credits
	InviteCode        string     `gorm:"size:20;uniqueIndex;not null" json:"invite_code"` // Code this user shares
	InvitedByID       *uint      `gorm:"index" json:"invited_by_id,omitempty"`            // Weak reference to the inviter
	InviteQuota       int        `gorm:"not null" json:"invite_quota"`                    // Registrations this code may still sponsor
	IsActive          bool       `gorm:"not null" json:"is_active"`                       // Inactive users cannot log in or invite
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`                         // Last successful login
	CreatedAt         time.Time  `json:"created_at"`                                      // Creation time
	UpdatedAt         time.Time  `json:"updated_at"`                                      // Last update time
}

// PublicUser is the subset of a user that anyone may see
type PublicUser struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the public view of u
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
