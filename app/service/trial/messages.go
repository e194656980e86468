package trial

import (
	"fmt"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/store"
)

// AccessInstructions formats the credential message sent right after issuing.
func (s *Service) AccessInstructions(account *store.TrialAccount, clientName string) string {
	hours := int(s.cfg.Trial.Duration.Std().Hours())
	expiration := account.ExpiresAt.Format("02/01/2006 15:04")

	return fmt.Sprintf(`🎉 *Parabéns %s!*

Seu teste GRATUITO foi gerado com sucesso! ✅

📺 *DADOS DE ACESSO:*
━━━━━━━━━━━━━━━━━━━
👤 *Usuário:* %s
🔑 *Senha:* %s
🌐 *Servidor:* %s
🔌 *Porta:* %s
━━━━━━━━━━━━━━━━━━━

⏱️ *Validade:* %dh
📅 *Expira em:* %s

📱 *COMO USAR:*

1️⃣ Baixe um aplicativo de IPTV:
   • IPTV Smarters Pro
   • GSE Smart IPTV
   • Smart IPTV

2️⃣ Abra o app e selecione "Login com Xtream Codes"

3️⃣ Preencha servidor, porta, usuário e senha acima

4️⃣ Clique em "Adicionar Usuário" e aproveite! 🎬

💡 *Dica:* use uma boa conexão de internet (WiFi recomendado)!

❓ *Dúvidas?* É só me chamar! 😊`,
		clientName, account.Username, account.Password,
		account.ServerURL, account.Port, hours, expiration)
}

// StatusMessage formats the remaining time of a running trial.
func (s *Service) StatusMessage(account *store.TrialAccount) string {
	remaining := account.TimeRemaining(s.now())
	if remaining <= 0 {
		return `⏰ Seu teste expirou!

Mas não se preocupe! Temos ótimos planos para você continuar assistindo! 📺

Quer conhecer nossas opções? Digite *"planos"*! 😊`
	}

	hours := int(remaining / time.Hour)
	minutes := int(remaining % time.Hour / time.Minute)

	return fmt.Sprintf(`✅ *Seu teste está ATIVO!*

⏱️ Tempo restante: *%dh %dmin*

👤 Usuário: %s
🔑 Senha: %s

Está gostando? Me conte sua experiência! 🤗`,
		hours, minutes, account.Username, account.Password)
}

// FollowUpMessage is the deferred nudge sent after a trial expires.
func FollowUpMessage(clientName string) string {
	greeting := "Olá!"
	if clientName != "" {
		greeting = fmt.Sprintf("Olá %s!", clientName)
	}

	return fmt.Sprintf(`%s 😊

Vi que seu teste expirou! Espero que tenha aproveitado! 🎬

O que achou da nossa IPTV? Conseguiu testar tudo? 📺

Tenho uma *super oferta* para você continuar assistindo! 🎉

*Planos a partir de R$ 19,90/mês*

Quer conhecer? É só responder! 🤗`, greeting)
}
