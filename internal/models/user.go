package models

import "time"

// User is the credential aggregate: identity, password hash, confirmation state and lockout.
type User struct {
	BaseModel

	Name           string `gorm:"type:varchar(128)" json:"name"`
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string `gorm:"not null" json:"-"`
	EmailConfirmed bool   `gorm:"default:false" json:"email_confirmed"`

	Lockout Lockout `gorm:"embedded" json:"-"`

	Roles []Role `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE" json:"roles,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `gorm:"type:varchar(64)" json:"-"`
}

// RoleNames returns the names of the loaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}
