package events

import "time"

// Type identifies the kind of event flowing through the bus.
type Type string

const (
	TypeTick           Type = "tick"
	TypeSignal         Type = "signal"
	TypeTradeOpened    Type = "trade_opened"
	TypeTradeClosed    Type = "trade_closed"
	TypeStrategyUpdate Type = "strategy_update"
	TypeMetricUpdate   Type = "metric_update"
	TypeError          Type = "error"
	TypeConnection     Type = "connection"
)

// Event is an immutable notification published on the bus. Payload values
// must not be mutated after emit.
type Event struct {
	Type      Type
	Data      map[string]interface{}
	Timestamp time.Time
}

// New builds an event stamped with the current time.
func New(t Type, data map[string]interface{}) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}
