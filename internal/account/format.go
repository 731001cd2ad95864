package account

import (
	"fmt"
	"strings"
)

// Format names the environment variables holding the secrets of a user on an exchange.
type Format struct {
	user     string
	exchange string
}

func NewFormat(user, exchange string) Format {
	return Format{
		user:     strings.ToUpper(user),
		exchange: strings.ToUpper(exchange),
	}
}

func (f Format) Key() string {
	return fmt.Sprintf("%s_%s_KEY", f.user, f.exchange)
}

func (f Format) Secret() string {
	return fmt.Sprintf("%s_%s_SECRET", f.user, f.exchange)
}

func (f Format) ChatID() string {
	return fmt.Sprintf("%s_CHAT_ID", f.user)
}

func (f Format) Token() string {
	return fmt.Sprintf("%s_BOT_TOKEN", f.user)
}
