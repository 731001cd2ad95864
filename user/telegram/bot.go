package telegram

import (
	"fmt"
	"sync"

	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/user"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
)

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot sends the notifications to a telegram chat.
type Bot struct {
	bot    botAPI
	chatID int64
	sent   int
	lock   *sync.Mutex
}

// NewBot creates a new telegram bot for the given token and chat.
func NewBot(token account.Token) (*Bot, error) {
	if token.Empty() {
		return nil, fmt.Errorf("missing telegram token or chat id")
	}
	api, err := tgbotapi.NewBotAPI(token.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	api.Buffer = 0
	return newBot(api, token.ID), nil
}

func newBot(api botAPI, chatID int64) *Bot {
	return &Bot{
		bot:    api,
		chatID: chatID,
		lock:   new(sync.Mutex),
	}
}

// Send sends the message to the chat.
func (b *Bot) Send(message *user.Message) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	msg := tgbotapi.NewMessage(b.chatID, message.Text)
	sent, err := b.bot.Send(msg)
	if err != nil {
		log.Err(err).Int64("chat", b.chatID).Msg("could not send message")
		return fmt.Errorf("could not send message: %w", err)
	}
	b.sent++
	log.Debug().Int("id", sent.MessageID).Msg("message sent")
	return nil
}
