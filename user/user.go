package user

import (
	"fmt"
	"time"

	cmath "github.com/drakos74/level-trader/internal/math"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/rs/zerolog/log"
)

const dateFormat = "Jan _2 15:04:05"

// Message is a notification for the user.
type Message struct {
	Text string
	Time time.Time
}

// Notifier delivers messages to the user.
type Notifier interface {
	Send(message *Message) error
}

// Opened describes a new position.
func Opened(p model.Position) *Message {
	return &Message{
		Text: fmt.Sprintf("%s %s %s @ %s\nsl %s tp %s x%d\n%s score %s",
			emoji(p.Direction), p.TradeID, p.Direction, cmath.Format(p.EntryPrice),
			cmath.Format(p.StopLoss), cmath.Format(p.TakeProfit), p.Leverage,
			p.EntryReason, cmath.Format(p.EntryScore)),
		Time: p.EntryTime,
	}
}

// Closed describes a closed trade.
func Closed(t model.ClosedTrade) *Message {
	result := "loss"
	if t.Win() {
		result = "win"
	}
	return &Message{
		Text: fmt.Sprintf("%s %s %s closed @ %s\n%s %s (%s%%) %s\nheld %s effective %v",
			emoji(t.Direction), t.TradeID, t.Direction, cmath.Format(t.ExitPrice),
			result, cmath.Format(t.PnL), cmath.Format(t.PnLPercent), t.ExitReason,
			t.HoldTime().Round(time.Second), t.LevelWasEffective),
		Time: t.ExitTime,
	}
}

func emoji(d model.Direction) string {
	switch d {
	case model.Long:
		return "🟢"
	case model.Short:
		return "🔴"
	}
	return "⚪"
}

// Void logs the messages instead of sending them.
type Void struct {
}

func NewVoid() *Void {
	return &Void{}
}

func (v *Void) Send(message *Message) error {
	log.Debug().
		Str("time", message.Time.Format(dateFormat)).
		Str("text", message.Text).
		Msg("message")
	return nil
}
