package models

import (
	"time"

	"gorm.io/gorm"
)

// FailedDelivery is a durable snapshot of a webhook payload whose
// automatic retry budget was exhausted. It is removed on a successful
// manual retry.
type FailedDelivery struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordID      uint      `json:"recordId" gorm:"index"`
	Payload       string    `json:"payload" gorm:"type:text"` // webhook JSON at failure time
	FirstFailedAt time.Time `json:"firstFailedAt"`
	RetryCount    int       `json:"retryCount"`
}

func (FailedDelivery) TableName() string {
	return "failed_deliveries"
}

// CreateFailedDelivery records a permanently failed webhook payload.
func CreateFailedDelivery(db *gorm.DB, fd *FailedDelivery) error {
	if fd.FirstFailedAt.IsZero() {
		fd.FirstFailedAt = time.Now()
	}
	return db.Create(fd).Error
}

// ListFailedDeliveries returns all failed deliveries in store order.
func ListFailedDeliveries(db *gorm.DB) ([]FailedDelivery, error) {
	var fds []FailedDelivery
	err := db.Order("id ASC").Find(&fds).Error
	return fds, err
}

// DeleteFailedDelivery removes one entry after a successful manual retry.
func DeleteFailedDelivery(db *gorm.DB, id uint) error {
	return db.Delete(&FailedDelivery{}, id).Error
}

// IncrementFailedRetry bumps the retry counter after an unsuccessful
// manual attempt.
func IncrementFailedRetry(db *gorm.DB, id uint) error {
	return db.Model(&FailedDelivery{}).Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

// CountFailedDeliveries returns the number of entries awaiting manual retry.
func CountFailedDeliveries(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&FailedDelivery{}).Count(&n).Error
	return n, err
}
