package domain

import "time"

// Todo is the single persisted task record. ID and both timestamps are
// assigned by the storage layer.
type Todo struct {
	ID          uint      `gorm:"primaryKey"`
	Title       string    `gorm:"size:200;not null;index"`
	Description *string   `gorm:"type:text"`
	Completed   bool      `gorm:"not null;default:false;index"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Todo) TableName() string {
	return "todos"
}
