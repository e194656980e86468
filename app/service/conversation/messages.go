package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"
)

func greeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour >= 5 && hour < 12:
		return "☀️ Bom dia!"
	case hour >= 12 && hour < 18:
		return "🌤️ Boa tarde!"
	default:
		return "🌙 Boa noite!"
	}
}

func (s *Service) welcomeMessage() string {
	return fmt.Sprintf(`%s Seja muito bem-vindo(a) à *%s*! 😊

Eu sou a *%s* e vou te ajudar por aqui. 📺✨
Temos milhares de canais, filmes e séries em alta qualidade.

Escolha uma opção digitando o número:

1) 📋 Conhecer nossos planos
2) 🎁 Teste grátis (4h)
3) 💰 Preços e formas de pagamento
4) 👤 Falar com atendente humano
5) ❓ Suporte e dúvidas
6) 🔚 Encerrar atendimento

_Dica: você também pode digitar palavras como "planos", "teste", "preços", "atendente", "suporte" ou "encerrar"._`,
		greeting(s.now()), s.cfg.Bot.CompanyName, s.cfg.Bot.BotName)
}

func (s *Service) plansMessage() string {
	var b strings.Builder

	b.WriteString("📺 *Nossos Planos IPTV* 📺\n\n")
	b.WriteString("Escolha o plano perfeito para você:\n")
	b.WriteString("━━━━━━━━━━━━━━━━━━━\n\n")

	for i, plan := range s.cfg.Plans {
		badge := ""
		if plan.Recommended {
			badge = " ⭐ _POPULAR_"
		}

		fmt.Fprintf(&b, "*%d. %s*%s\n", i+1, plan.Name, badge)
		fmt.Fprintf(&b, "💰 R$ %.2f/mês\n", plan.Price)
		fmt.Fprintf(&b, "📺 %d canais\n", plan.Channels)
		fmt.Fprintf(&b, "🎬 Qualidade %s\n", plan.Quality)
		if plan.Devices > 0 {
			fmt.Fprintf(&b, "📱 %d dispositivos simultâneos\n", plan.Devices)
		}
		fmt.Fprintf(&b, "📝 %s\n\n", plan.Description)
	}

	b.WriteString("━━━━━━━━━━━━━━━━━━━\n\n")
	b.WriteString("✨ *TODOS OS PLANOS INCLUEM:*\n")
	b.WriteString("✅ Filmes e Séries On Demand\n")
	b.WriteString("✅ Canais HD/Full HD/4K\n")
	b.WriteString("✅ Estabilidade garantida\n")
	b.WriteString("✅ Suporte 24h\n")
	b.WriteString("✅ Atualização automática\n\n")
	b.WriteString(`_Digite o número do plano que te interessou ou "teste" para experimentar grátis!_ 😊`)

	return b.String()
}

func confirmPlanMessage(plan config.Plan) string {
	return fmt.Sprintf(`Ótima escolha! 🎉

Você selecionou o *%s*
💰 R$ %.2f/mês

Quer prosseguir com a compra? 😊

Digite:
✅ *SIM* - Para continuar
🎁 *TESTE* - Para fazer teste grátis antes
🔙 *VOLTAR* - Ver outros planos`, plan.Name, plan.Price)
}

func (s *Service) planRangeMessage() string {
	return fmt.Sprintf("Hmm, não entendi... 🤔\n\nPor favor, digite o *número* do plano (1 a %d) ou digite *\"teste\"* para experimentar grátis!",
		len(s.cfg.Plans))
}

const testIntroMessage = `🎁 *Teste Gratuito - 4 Horas!* 🎁

Que ótimo que você quer experimentar! 😊

Nosso teste inclui:
✅ Acesso completo por 4h
✅ Todos os canais liberados
✅ Filmes e séries à vontade
✅ Qualidade Full HD

Para gerar seu teste, preciso saber:

*Qual é o seu nome?* 😊`

const namePromptMessage = `Por favor, me informe seu nome completo 😊`

func generatingTestMessage(name string) string {
	return fmt.Sprintf("Prazer em te conhecer, %s! 🤗\n\nAguarde um momento que vou gerar seu teste...", name)
}

const alreadyTestedMessage = `Ops! Você já utilizou seu teste gratuito! 😅

Mas tenho uma ótima notícia! Nossos planos começam em apenas *R$ 19,90/mês*! 🎉

Quer conhecer? Digite *"planos"*! 😊`

const nextStepsMessage = `Tudo certo com seu acesso?

- Digite *planos* para ver opções de assinatura
- Digite *suporte* para ajuda
- Digite *menu* para voltar ao início
- Digite *encerrar* para finalizar o atendimento`

const planConfirmPromptMessage = `Por favor, responda:
✅ *SIM* para continuar
🎁 *TESTE* para testar antes
🔙 *VOLTAR* para ver outros planos`

const paymentPromptMessage = `Por favor, escolha uma forma de pagamento:

💳 PIX
📄 Boleto
💳 Cartão de Crédito`

const supportMenuMessage = `🆘 *Central de Ajuda* 🆘

Como posso te ajudar? 😊

*Escolha uma opção:*

1️⃣ Como instalar/configurar
2️⃣ Problemas de conexão
3️⃣ Qualidade de imagem
4️⃣ Alterar/cancelar plano
5️⃣ Falar com atendente

_Digite o número ou descreva seu problema_ 💬`

var supportAnswers = map[string]string{
	"1": "📱 *Como Instalar:*\n\n1. Baixe um app de IPTV (IPTV Smarters, GSE Smart IPTV)\n2. Abra e selecione \"Xtream Codes\"\n3. Insira seus dados de acesso\n4. Pronto! 🎉\n\nPrecisa de mais ajuda?",
	"2": "🌐 *Problemas de Conexão:*\n\n✅ Verifique sua internet\n✅ Use WiFi (recomendado)\n✅ Reinicie o aplicativo\n✅ Teste em outro dispositivo\n\nAinda com problema? Digite \"atendente\"",
	"3": "🎬 *Qualidade de Imagem:*\n\n✅ Use internet mínima de 10MB\n✅ Conecte em WiFi\n✅ Feche outros apps\n✅ Limpe o cache do app\n\nNossos canais são HD/4K! Qualquer dúvida, digite \"atendente\"",
	"4": "⚙️ *Alterar/Cancelar:*\n\nPara alterações no plano, preciso te conectar com nossa equipe!\n\nDigite \"atendente\" para falar com um humano! 😊",
}

const supportFallbackMessage = `Entendi! Para melhor te atender, vou te transferir para um atendente humano! 😊

Digite "atendente" para continuar.`

const transferMessage = `Claro! Vou te conectar com um atendente humano! 👤

Aguarde um momento, em breve alguém da nossa equipe irá te atender! ⏳

_Horário de atendimento: 8h às 18h_ 🕐`

const unknownInputMessage = `Desculpe, não entendi muito bem... 🤔

Tente usar o menu de opções ou me conte o que você precisa de forma diferente! 😊

Digite *"menu"* para ver as opções novamente! 📋`

const suggestionPromptMessage = `Claro! Pode me enviar sua sugestão. 😊`

const suggestionThanksMessage = `Obrigado pela sugestão! Isso nos ajuda a melhorar. 🙏 Digite *menu* para voltar.`

const feedbackHintMessage = `Dica: digite *planos*, *suporte*, *menu* ou *encerrar* a qualquer momento. 😉`

func (s *Service) closingMessage() string {
	return fmt.Sprintf(`✅ Atendimento encerrado!

Obrigado por conversar com a *%s*! 😊
Para começar de novo, envie: *oi* ou *menu*. 👋`, s.cfg.Bot.CompanyName)
}

const errorMessage = `Ops! Tivemos um probleminha técnico aqui... 😅

Mas não se preocupe! Já estou funcionando novamente!

Por favor, tente novamente ou digite *"atendente"* para falar com um humano! 😊`
