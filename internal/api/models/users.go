package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reviewhub/internal/access"
)

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

type User struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	Username    string     `gorm:"size:150;uniqueIndex:idx_users_username;not null" json:"username"`
	Email       string     `gorm:"size:254;uniqueIndex:idx_users_email;not null" json:"email"`
	FirstName   string     `gorm:"size:150" json:"first_name"`
	LastName    string     `gorm:"size:150" json:"last_name"`
	Bio         string     `gorm:"type:text" json:"bio"`
	Role        string     `gorm:"size:15;default:'user';not null" json:"role"`
	IsSuperuser bool       `gorm:"default:false;not null" json:"-"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate hook to set UUID before creating a User
func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	return
}

func (User) TableName() string {
	return "users"
}

// IsAdmin is true for the admin role and for superusers.
func (user *User) IsAdmin() bool {
	return user.Role == RoleAdmin || user.IsSuperuser
}

func (user *User) IsModerator() bool {
	return user.Role == RoleModerator
}

// Actor converts the stored account into the authorization subject.
// An unreadable role degrades to a plain user.
func (user *User) Actor() access.Actor {
	role, err := access.ParseRole(user.Role)
	if err != nil {
		role = access.User
	}
	return access.Actor{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      role,
		Superuser: user.IsSuperuser,
	}
}
