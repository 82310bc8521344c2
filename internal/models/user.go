package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// User owns tasks and carries the subscription flag the billing reconciler
// maintains. The password hash never leaves the process boundary.
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	Username     string     `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsSubscribed bool       `json:"is_subscribed" gorm:"not null;default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Tasks []Task `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Plan names the tier implied by the subscription flag.
func (u *User) Plan() string {
	if u.IsSubscribed {
		return "premium"
	}
	return "free"
}
