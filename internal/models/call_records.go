package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	CallIncoming = "incoming"
	CallOutgoing = "outgoing"
	CallMissed   = "missed"

	SourceRealTime   = "real_time"
	SourceReconciled = "reconciled"

	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// FingerprintTolerance is the timestamp window within which two record
// candidates sharing number, type and talk duration are the same call.
const FingerprintTolerance = 30 * time.Second

// CallRecord is one completed call. OriginTimestamp (epoch millis of the
// call start as reported by the authoritative log) is the ordering and
// dedup key. Only the delivery pipeline mutates a record after creation.
type CallRecord struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	PhoneNumber      string    `json:"phoneNumber" gorm:"size:64;index"`
	ContactName      string    `json:"contactName,omitempty" gorm:"size:128"`
	CallType         string    `json:"callType" gorm:"size:16;index"`
	TalkDuration     int64     `json:"talkDuration"`  // seconds on-call, after pickup
	TotalDuration    int64     `json:"totalDuration"` // seconds including ring
	CallDate         string    `json:"callDate" gorm:"size:10;index"` // YYYY-MM-DD
	StartTime        string    `json:"startTime" gorm:"size:8"`       // HH:MM:SS
	EndTime          string    `json:"endTime" gorm:"size:8"`
	AgentCode        string    `json:"agentCode" gorm:"size:64;index"`
	AgentName        string    `json:"agentName" gorm:"size:128"`
	OriginTimestamp  int64     `json:"timestamp" gorm:"index"`
	DataSource       string    `json:"dataSource" gorm:"size:16;default:'real_time'"`
	DeliveryState    string    `json:"deliveryState" gorm:"size:16;index;default:'pending'"`
	DeliveryAttempts int       `json:"deliveryAttempts"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// Fingerprint is the non-timestamp part of the dedup key; the timestamp
// tolerance is applied by the window query in FindByFingerprint.
func (r *CallRecord) Fingerprint() string {
	return fmt.Sprintf("%s_%s_%d", r.PhoneNumber, r.CallType, r.TalkDuration)
}

// ClampDurations enforces talk <= total and talk == 0 for missed calls.
// Invalid inputs are corrected rather than rejected: losing a record is
// worse than a minor metric inaccuracy.
func (r *CallRecord) ClampDurations() {
	if r.CallType == CallMissed {
		r.TalkDuration = 0
	}
	if r.TalkDuration > r.TotalDuration {
		r.TalkDuration = r.TotalDuration
	}
	if r.TalkDuration < 0 {
		r.TalkDuration = 0
	}
	if r.TotalDuration < 0 {
		r.TotalDuration = 0
	}
}

// CreateCallRecord persists a new record.
func CreateCallRecord(db *gorm.DB, rec *CallRecord) error {
	rec.ClampDurations()
	return db.Create(rec).Error
}

// GetCallRecord loads one record by id.
func GetCallRecord(db *gorm.DB, id uint) (*CallRecord, error) {
	var rec CallRecord
	if err := db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetCallsByDate returns an agent's calls for one day, newest first.
func GetCallsByDate(db *gorm.DB, agentCode, date string) ([]CallRecord, error) {
	var recs []CallRecord
	err := db.Where("agent_code = ? AND call_date = ?", agentCode, date).
		Order("origin_timestamp DESC").
		Find(&recs).Error
	return recs, err
}

// GetCallsByTimestampRange returns calls with OriginTimestamp in
// [from, to], ascending.
func GetCallsByTimestampRange(db *gorm.DB, from, to int64) ([]CallRecord, error) {
	var recs []CallRecord
	err := db.Where("origin_timestamp >= ? AND origin_timestamp <= ?", from, to).
		Order("origin_timestamp ASC").
		Find(&recs).Error
	return recs, err
}

// FindByFingerprint looks for an existing record for the same real call:
// same number, type and talk duration, with OriginTimestamp within the
// tolerance window around ts. Returns (nil, nil) when absent.
func FindByFingerprint(db *gorm.DB, ts int64, phoneNumber, callType string, talkDuration int64) (*CallRecord, error) {
	tol := FingerprintTolerance.Milliseconds()
	var rec CallRecord
	err := db.Where(
		"origin_timestamp >= ? AND origin_timestamp <= ? AND phone_number = ? AND call_type = ? AND talk_duration = ?",
		ts-tol, ts+tol, phoneNumber, callType, talkDuration,
	).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertIfAbsent atomically performs the fingerprint check and the insert
// inside one transaction, so a concurrent writer touching the same time
// window cannot slip a duplicate past the check. Returns whether the
// record was created.
func InsertIfAbsent(db *gorm.DB, rec *CallRecord) (bool, error) {
	created := false
	err := db.Transaction(func(tx *gorm.DB) error {
		existing, err := FindByFingerprint(tx, rec.OriginTimestamp, rec.PhoneNumber, rec.CallType, rec.TalkDuration)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		if err := CreateCallRecord(tx, rec); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// MarkDelivered records a successful delivery.
func MarkDelivered(db *gorm.DB, id uint, attempts int) error {
	return db.Model(&CallRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"delivery_state":    DeliveryDelivered,
		"delivery_attempts": attempts,
	}).Error
}

// MarkDeliveryFailed records exhaustion of the automatic retry budget.
func MarkDeliveryFailed(db *gorm.DB, id uint, attempts int) error {
	return db.Model(&CallRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"delivery_state":    DeliveryFailed,
		"delivery_attempts": attempts,
	}).Error
}

// CountPendingDeliveries counts records not yet delivered or failed.
func CountPendingDeliveries(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&CallRecord{}).Where("delivery_state = ?", DeliveryPending).Count(&n).Error
	return n, err
}

// AllModels lists every entity for migration.
func AllModels() []interface{} {
	return []interface{}{
		&CallRecord{},
		&FailedDelivery{},
		&ReconcileCursor{},
	}
}
