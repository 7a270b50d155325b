package stream

import (
	"encoding/json"

	"github.com/tsblive/callpulse/internal/models"
)

// Outbound event names.
const (
	EventAgentOnline    = "agent_online"
	EventAgentOffline   = "agent_offline"
	EventCallStarted    = "call_started"
	EventCallEnded      = "call_ended"
	EventCallUpdate     = "call_update"
	EventTalkTimeUpdate = "talktime_update"
	EventReminderAck    = "reminder_acknowledged"
)

// Inbound event names.
const (
	EventReminderTrigger = "reminder_trigger"
)

// Envelope frames every message on the stream connection.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ReminderTrigger is the inbound directive asking the agent to surface
// an idle reminder. ActionShowReminder expects an acknowledgment.
type ReminderTrigger struct {
	Action    string `json:"action"`
	Message   string `json:"message"`
	IdleTime  string `json:"idleTime"`
	AgentCode string `json:"agentCode"`
}

// ActionShowReminder is the only reminder action currently defined.
const ActionShowReminder = "show_reminder"

type agentPresence struct {
	AgentCode string `json:"agentCode"`
	AgentName string `json:"agentName,omitempty"`
}

type callStarted struct {
	AgentCode   string `json:"agentCode"`
	AgentName   string `json:"agentName"`
	PhoneNumber string `json:"phoneNumber"`
	CallType    string `json:"callType"`
}

type callSummary struct {
	PhoneNumber   string  `json:"phoneNumber"`
	ContactName   *string `json:"contactName"`
	CallType      string  `json:"callType"`
	TalkDuration  int64   `json:"talkDuration"`
	TotalDuration int64   `json:"totalDuration"`
	CallDate      string  `json:"callDate"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	AgentName     string  `json:"agentName"`
}

type callEnded struct {
	AgentCode          string      `json:"agentCode"`
	CallData           callSummary `json:"callData"`
	TodayTotalTalkTime int64       `json:"todayTotalTalkTime"`
}

type callUpdate struct {
	AgentCode     string  `json:"agentCode"`
	AgentName     string  `json:"agentName"`
	PhoneNumber   string  `json:"phoneNumber"`
	ContactName   *string `json:"contactName"`
	CallType      string  `json:"callType"`
	TalkDuration  int64   `json:"talkDuration"`
	TotalDuration int64   `json:"totalDuration"`
	CallDate      string  `json:"callDate"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	Timestamp     int64   `json:"timestamp"`
	DataSource    string  `json:"dataSource"`
}

type talkTimeUpdate struct {
	AgentCode string `json:"agentCode"`
	AgentName string `json:"agentName"`
	TalkTime  int64  `json:"talkTime"`
}

type reminderAck struct {
	Action    string `json:"action"`
	AgentCode string `json:"agentCode"`
}

func contactNamePtr(rec *models.CallRecord) *string {
	if rec.ContactName == "" {
		return nil
	}
	name := rec.ContactName
	return &name
}

func summarize(rec *models.CallRecord) callSummary {
	return callSummary{
		PhoneNumber:   rec.PhoneNumber,
		ContactName:   contactNamePtr(rec),
		CallType:      rec.CallType,
		TalkDuration:  rec.TalkDuration,
		TotalDuration: rec.TotalDuration,
		CallDate:      rec.CallDate,
		StartTime:     rec.StartTime,
		EndTime:       rec.EndTime,
		AgentName:     rec.AgentName,
	}
}
