package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallRecord_TableName(t *testing.T) {
	var rec CallRecord
	assert.Equal(t, "call_records", rec.TableName())
}

func TestClampDurations(t *testing.T) {
	rec := &CallRecord{CallType: CallIncoming, TalkDuration: 50, TotalDuration: 42}
	rec.ClampDurations()
	assert.Equal(t, int64(42), rec.TalkDuration)

	rec = &CallRecord{CallType: CallMissed, TalkDuration: 10, TotalDuration: 25}
	rec.ClampDurations()
	assert.Equal(t, int64(0), rec.TalkDuration)
	assert.Equal(t, int64(25), rec.TotalDuration)

	rec = &CallRecord{CallType: CallOutgoing, TalkDuration: -3, TotalDuration: -1}
	rec.ClampDurations()
	assert.Equal(t, int64(0), rec.TalkDuration)
	assert.Equal(t, int64(0), rec.TotalDuration)
}

func TestFindByFingerprint_WithinTolerance(t *testing.T) {
	db := setupTestDB(t)

	base := time.Now().UnixMilli()
	require.NoError(t, CreateCallRecord(db, &CallRecord{
		PhoneNumber:     "+15550100",
		CallType:        CallIncoming,
		TalkDuration:    30,
		TotalDuration:   42,
		OriginTimestamp: base,
		AgentCode:       "A1",
	}))

	// 20s off, same fingerprint fields: same call.
	match, err := FindByFingerprint(db, base+20_000, "+15550100", CallIncoming, 30)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "+15550100", match.PhoneNumber)

	// 31s off: outside the tolerance window.
	match, err = FindByFingerprint(db, base+31_000, "+15550100", CallIncoming, 30)
	require.NoError(t, err)
	assert.Nil(t, match)

	// Same window, different talk duration: a different call.
	match, err = FindByFingerprint(db, base, "+15550100", CallIncoming, 29)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestInsertIfAbsent(t *testing.T) {
	db := setupTestDB(t)

	base := time.Now().UnixMilli()
	rec := &CallRecord{
		PhoneNumber:     "+15550101",
		CallType:        CallOutgoing,
		TalkDuration:    10,
		TotalDuration:   10,
		OriginTimestamp: base,
		AgentCode:       "A1",
	}

	created, err := InsertIfAbsent(db, rec)
	require.NoError(t, err)
	assert.True(t, created)

	dup := &CallRecord{
		PhoneNumber:     "+15550101",
		CallType:        CallOutgoing,
		TalkDuration:    10,
		TotalDuration:   10,
		OriginTimestamp: base + 5_000,
		AgentCode:       "A1",
	}
	created, err = InsertIfAbsent(db, dup)
	require.NoError(t, err)
	assert.False(t, created)

	var n int64
	require.NoError(t, db.Model(&CallRecord{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDeliveryStateTransitions(t *testing.T) {
	db := setupTestDB(t)

	rec := &CallRecord{
		PhoneNumber:     "+15550102",
		CallType:        CallIncoming,
		TalkDuration:    5,
		TotalDuration:   8,
		OriginTimestamp: time.Now().UnixMilli(),
		DeliveryState:   DeliveryPending,
	}
	require.NoError(t, CreateCallRecord(db, rec))

	pending, err := CountPendingDeliveries(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	require.NoError(t, MarkDelivered(db, rec.ID, 2))
	got, err := GetCallRecord(db, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, DeliveryDelivered, got.DeliveryState)
	assert.Equal(t, 2, got.DeliveryAttempts)

	require.NoError(t, MarkDeliveryFailed(db, rec.ID, 2))
	got, err = GetCallRecord(db, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, DeliveryFailed, got.DeliveryState)
}

func TestGetCallsByTimestampRange(t *testing.T) {
	db := setupTestDB(t)

	base := int64(1_700_000_000_000)
	for i, ts := range []int64{base, base + 60_000, base + 120_000} {
		require.NoError(t, CreateCallRecord(db, &CallRecord{
			PhoneNumber:     "+1555010" + string(rune('0'+i)),
			CallType:        CallIncoming,
			TalkDuration:    int64(i),
			TotalDuration:   int64(i + 1),
			OriginTimestamp: ts,
		}))
	}

	recs, err := GetCallsByTimestampRange(db, base, base+60_000)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, base, recs[0].OriginTimestamp)
	assert.Equal(t, base+60_000, recs[1].OriginTimestamp)
}

func TestReconcileCursor(t *testing.T) {
	db := setupTestDB(t)

	ts, err := GetReconcileCursor(db)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	require.NoError(t, AdvanceReconcileCursor(db, 1000))
	ts, err = GetReconcileCursor(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ts)

	// Backward moves are ignored.
	require.NoError(t, AdvanceReconcileCursor(db, 500))
	ts, err = GetReconcileCursor(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ts)

	require.NoError(t, AdvanceReconcileCursor(db, 2000))
	ts, err = GetReconcileCursor(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), ts)
}

func TestFailedDeliveryLifecycle(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, CreateFailedDelivery(db, &FailedDelivery{
		RecordID:   1,
		Payload:    `{"phoneNumber":"+15550100"}`,
		RetryCount: 1,
	}))
	require.NoError(t, CreateFailedDelivery(db, &FailedDelivery{
		RecordID:   2,
		Payload:    `{"phoneNumber":"+15550101"}`,
		RetryCount: 1,
	}))

	fds, err := ListFailedDeliveries(db)
	require.NoError(t, err)
	require.Len(t, fds, 2)
	assert.Equal(t, uint(1), fds[0].RecordID)
	assert.False(t, fds[0].FirstFailedAt.IsZero())

	require.NoError(t, IncrementFailedRetry(db, fds[0].ID))
	fds, err = ListFailedDeliveries(db)
	require.NoError(t, err)
	assert.Equal(t, 2, fds[0].RetryCount)

	require.NoError(t, DeleteFailedDelivery(db, fds[0].ID))
	n, err := CountFailedDeliveries(db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDailyAnalytics(t *testing.T) {
	db := setupTestDB(t)

	date := "2026-08-31"
	seed := []CallRecord{
		{PhoneNumber: "+15550100", CallType: CallIncoming, TalkDuration: 30, TotalDuration: 42, CallDate: date, AgentCode: "A1", OriginTimestamp: 1},
		{PhoneNumber: "+15550101", CallType: CallOutgoing, TalkDuration: 10, TotalDuration: 10, CallDate: date, AgentCode: "A1", OriginTimestamp: 2},
		{PhoneNumber: "+15550102", CallType: CallMissed, TalkDuration: 0, TotalDuration: 15, CallDate: date, AgentCode: "A1", OriginTimestamp: 3},
		// A different agent should not be counted.
		{PhoneNumber: "+15550103", CallType: CallIncoming, TalkDuration: 99, TotalDuration: 99, CallDate: date, AgentCode: "B2", OriginTimestamp: 4},
	}
	for i := range seed {
		require.NoError(t, CreateCallRecord(db, &seed[i]))
	}

	talk, err := GetTalkTimeForDate(db, "A1", date)
	require.NoError(t, err)
	assert.Equal(t, int64(40), talk)

	day, err := GetDailyAnalytics(db, "A1", date)
	require.NoError(t, err)
	assert.Equal(t, int64(3), day.TotalCalls)
	assert.Equal(t, int64(1), day.IncomingCalls)
	assert.Equal(t, int64(30), day.IncomingDuration)
	assert.Equal(t, int64(1), day.OutgoingCalls)
	assert.Equal(t, int64(10), day.OutgoingDuration)
	assert.Equal(t, int64(1), day.MissedCalls)
	assert.Equal(t, int64(40), day.TotalDuration)
}
