package delivery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tsblive/callpulse/internal/models"
)

// WebhookPayload is the JSON body posted to the webhook endpoint.
// The shape is part of the external contract; consumers dedup on
// (timestamp, phoneNumber).
type WebhookPayload struct {
	AgentCode     string  `json:"agentCode"`
	AgentName     string  `json:"agentName"`
	ContactName   *string `json:"contactName"`
	PhoneNumber   string  `json:"phoneNumber"`
	CallType      string  `json:"callType"`
	TalkDuration  int64   `json:"talkDuration"`
	TotalDuration int64   `json:"totalDuration"`
	CallDate      string  `json:"callDate"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	Timestamp     string  `json:"timestamp"` // ISO-8601 UTC
	DeviceID      string  `json:"deviceId"`
}

// BuildWebhookPayload serializes a record for the durable lane.
func BuildWebhookPayload(rec *models.CallRecord) ([]byte, error) {
	var contact *string
	if rec.ContactName != "" {
		name := rec.ContactName
		contact = &name
	}

	payload := WebhookPayload{
		AgentCode:     rec.AgentCode,
		AgentName:     rec.AgentName,
		ContactName:   contact,
		PhoneNumber:   rec.PhoneNumber,
		CallType:      rec.CallType,
		TalkDuration:  rec.TalkDuration,
		TotalDuration: rec.TotalDuration,
		CallDate:      rec.CallDate,
		StartTime:     rec.StartTime,
		EndTime:       rec.EndTime,
		Timestamp:     time.UnixMilli(rec.OriginTimestamp).UTC().Format("2006-01-02T15:04:05Z"),
		DeviceID:      fmt.Sprintf("CA_%s_%d", rec.AgentCode, time.Now().UnixMilli()),
	}
	return json.Marshal(payload)
}
