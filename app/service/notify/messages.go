package notify

import (
	"fmt"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/store"
)

func renewalMessage(owner *store.Owner, now time.Time) string {
	greeting := "Olá!"
	if owner.Name != "" {
		greeting = fmt.Sprintf("Olá %s!", owner.Name)
	}

	days := int(owner.Subscription.EndDate.Sub(now).Hours() / 24)
	if days < 1 {
		days = 1
	}

	plural := "dias"
	if days == 1 {
		plural = "dia"
	}

	return fmt.Sprintf(`%s 😊

Passando para lembrar que sua assinatura vence em *%d %s* (%s)! ⏰

Para não ficar sem seus canais, filmes e séries, renove agora mesmo! 📺

💳 Aceitamos PIX, boleto e cartão.

Quer renovar? É só responder aqui! 🤗`,
		greeting, days, plural, owner.Subscription.EndDate.Format("02/01/2006"))
}
