// Package stream maintains the live, best-effort event connection to
// the analytics server. Events generated while disconnected are
// dropped, not queued; the durable webhook lane owns correctness.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tsblive/callpulse/internal/models"
	"github.com/tsblive/callpulse/pkg/logger"
	"github.com/tsblive/callpulse/pkg/metrics"
	"go.uber.org/zap"
)

// Client is the single long-lived stream connection. Writes are
// serialized; senders never block waiting for delivery confirmation.
type Client struct {
	url            string
	agentCode      string
	agentName      string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	writeMu sync.Mutex

	onReminder func(ReminderTrigger)
}

func NewClient(url, agentCode, agentName string, reconnectDelay time.Duration) *Client {
	return &Client{
		url:            url,
		agentCode:      agentCode,
		agentName:      agentName,
		reconnectDelay: reconnectDelay,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// SetReminderHandler registers the hook invoked for inbound reminder
// directives. Safe to call while Run is active.
func (c *Client) SetReminderHandler(fn func(ReminderTrigger)) {
	c.mu.Lock()
	c.onReminder = fn
	c.mu.Unlock()
}

// Run maintains the connection until ctx is cancelled: dial, announce
// presence, read until failure, wait a fixed delay, redial. Reconnect
// attempts continue indefinitely while the process is alive.
func (c *Client) Run(ctx context.Context) {
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			logger.Warn("stream connect failed",
				zap.String("url", c.url),
				zap.Duration("retryIn", c.reconnectDelay),
				zap.Error(err))
			metrics.StreamReconnects.Inc()
			if !sleepCtx(ctx, c.reconnectDelay) {
				return
			}
			continue
		}

		c.setConn(conn)
		logger.Info("stream connected", zap.String("url", c.url))
		c.Emit(EventAgentOnline, agentPresence{AgentCode: c.agentCode, AgentName: c.agentName})

		c.readLoop(ctx, conn)
		c.clearConn()

		select {
		case <-ctx.Done():
			return
		default:
		}
		logger.Warn("stream disconnected, reconnecting",
			zap.Duration("retryIn", c.reconnectDelay))
		metrics.StreamReconnects.Inc()
		if !sleepCtx(ctx, c.reconnectDelay) {
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Info("stream closed by server")
			} else if ctx.Err() == nil {
				logger.Warn("stream read error", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("stream: malformed message", zap.Error(err))
			continue
		}

		switch env.Event {
		case EventReminderTrigger:
			c.handleReminder(env.Data)
		default:
			logger.Debug("stream: unhandled event", zap.String("event", env.Event))
		}
	}
}

func (c *Client) handleReminder(data json.RawMessage) {
	var rt ReminderTrigger
	if err := json.Unmarshal(data, &rt); err != nil {
		logger.Warn("stream: malformed reminder trigger", zap.Error(err))
		return
	}
	logger.Info("reminder trigger received",
		zap.String("action", rt.Action),
		zap.String("message", rt.Message))

	if rt.Action != ActionShowReminder {
		return
	}
	c.mu.RLock()
	fn := c.onReminder
	c.mu.RUnlock()
	if fn != nil {
		fn(rt)
	}
	c.Emit(EventReminderAck, reminderAck{Action: EventReminderAck, AgentCode: rt.AgentCode})
}

// Emit sends one event. When disconnected the event is dropped; this
// lane accepts loss during outages.
func (c *Client) Emit(event string, data interface{}) {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		logger.Warn("stream offline, dropping event", zap.String("event", event))
		metrics.StreamDrops.Inc()
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		logger.Error("stream: marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	env := Envelope{Event: event, Data: raw, Timestamp: time.Now().UnixMilli()}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(env); err != nil {
		logger.Warn("stream write failed", zap.String("event", event), zap.Error(err))
	}
}

// SendCallStarted implements delivery.StreamNotifier.
func (c *Client) SendCallStarted(number, callType string) {
	c.Emit(EventCallStarted, callStarted{
		AgentCode:   c.agentCode,
		AgentName:   c.agentName,
		PhoneNumber: number,
		CallType:    callType,
	})
}

// SendCallEnded publishes the full record plus the day's aggregate
// talk time.
func (c *Client) SendCallEnded(rec *models.CallRecord, todayTalkTime int64) {
	c.Emit(EventCallEnded, callEnded{
		AgentCode:          c.agentCode,
		CallData:           summarize(rec),
		TodayTotalTalkTime: todayTalkTime,
	})
}

// SendCallUpdate publishes an out-of-band update for a backfilled
// record.
func (c *Client) SendCallUpdate(rec *models.CallRecord) {
	c.Emit(EventCallUpdate, callUpdate{
		AgentCode:     rec.AgentCode,
		AgentName:     rec.AgentName,
		PhoneNumber:   rec.PhoneNumber,
		ContactName:   contactNamePtr(rec),
		CallType:      rec.CallType,
		TalkDuration:  rec.TalkDuration,
		TotalDuration: rec.TotalDuration,
		CallDate:      rec.CallDate,
		StartTime:     rec.StartTime,
		EndTime:       rec.EndTime,
		Timestamp:     rec.OriginTimestamp,
		DataSource:    rec.DataSource,
	})
}

// SendTalkTimeUpdate publishes a recomputed day total.
func (c *Client) SendTalkTimeUpdate(talkTime int64) {
	c.Emit(EventTalkTimeUpdate, talkTimeUpdate{
		AgentCode: c.agentCode,
		AgentName: c.agentName,
		TalkTime:  talkTime,
	})
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close announces agent_offline and tears the connection down. Run
// must be stopped via its context before or after; Close does not
// restart the dial loop.
func (c *Client) Close() {
	c.Emit(EventAgentOffline, agentPresence{AgentCode: c.agentCode})

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
}

func (c *Client) clearConn() {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
