package campaign

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Campaign is a registered grouping label. Registration is metadata only;
// nothing enforces that logged campaigns match registered ones.
type Campaign struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// Ensure registers name if it is not present yet. Called at startup so the
// active campaign is listed before any traffic arrives.
func Ensure(db *gorm.DB, name string) error {
	var existing Campaign
	err := db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.Create(&Campaign{
		Name:        name,
		Description: "Auto-created campaign: " + name,
		IsActive:    true,
	}).Error
}
