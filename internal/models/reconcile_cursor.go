package models

import (
	"errors"

	"gorm.io/gorm"
)

const reconcileCursorID = 1

// ReconcileCursor is a single-row watermark of how far the
// reconciliation engine has scanned the authoritative call log.
// It only ever moves forward.
type ReconcileCursor struct {
	ID               uint  `gorm:"primaryKey"`
	LastReconciledAt int64 // epoch millis
}

func (ReconcileCursor) TableName() string {
	return "reconcile_cursor"
}

// GetReconcileCursor returns the watermark, 0 when never set.
func GetReconcileCursor(db *gorm.DB) (int64, error) {
	var cur ReconcileCursor
	err := db.First(&cur, reconcileCursorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cur.LastReconciledAt, nil
}

// AdvanceReconcileCursor moves the watermark to ts. Moves backward are
// ignored so an overlapping re-run can never shrink the scanned window.
func AdvanceReconcileCursor(db *gorm.DB, ts int64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var cur ReconcileCursor
		err := tx.First(&cur, reconcileCursorID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&ReconcileCursor{ID: reconcileCursorID, LastReconciledAt: ts}).Error
		}
		if err != nil {
			return err
		}
		if ts <= cur.LastReconciledAt {
			return nil
		}
		return tx.Model(&cur).Update("last_reconciled_at", ts).Error
	})
}
