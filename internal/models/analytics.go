package models

import (
	"gorm.io/gorm"
)

// DailyAnalytics aggregates one agent-day of calls.
type DailyAnalytics struct {
	Date             string `json:"date"`
	TotalCalls       int64  `json:"totalCalls"`
	TotalDuration    int64  `json:"totalDuration"`
	IncomingCalls    int64  `json:"incomingCalls"`
	IncomingDuration int64  `json:"incomingDuration"`
	OutgoingCalls    int64  `json:"outgoingCalls"`
	OutgoingDuration int64  `json:"outgoingDuration"`
	MissedCalls      int64  `json:"missedCalls"`
}

// GetTalkTimeForDate sums talk seconds for one agent-day.
func GetTalkTimeForDate(db *gorm.DB, agentCode, date string) (int64, error) {
	var total int64
	err := db.Model(&CallRecord{}).
		Where("agent_code = ? AND call_date = ?", agentCode, date).
		Select("COALESCE(SUM(talk_duration), 0)").
		Scan(&total).Error
	return total, err
}

// GetDailyAnalytics computes the per-direction breakdown for one agent-day.
func GetDailyAnalytics(db *gorm.DB, agentCode, date string) (*DailyAnalytics, error) {
	recs, err := GetCallsByDate(db, agentCode, date)
	if err != nil {
		return nil, err
	}

	out := &DailyAnalytics{Date: date}
	for i := range recs {
		rec := &recs[i]
		out.TotalCalls++
		out.TotalDuration += rec.TalkDuration
		switch rec.CallType {
		case CallIncoming:
			out.IncomingCalls++
			out.IncomingDuration += rec.TalkDuration
		case CallOutgoing:
			out.OutgoingCalls++
			out.OutgoingDuration += rec.TalkDuration
		case CallMissed:
			out.MissedCalls++
		}
	}
	return out, nil
}
