package payment

import (
	"fmt"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"

	"github.com/samber/do"
)

const pixDiscount = 0.95

// Service renders payment instruction texts. Codes are simulated; a real
// payment provider would replace generatePixCode and generateBoletoCode.
type Service struct {
	cfg *config.Config
	now func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	return newService(do.MustInvoke[*config.Config](di), time.Now), nil
}

func newService(cfg *config.Config, now func() time.Time) *Service {
	return &Service{cfg: cfg, now: now}
}

// OptionsMessage lists the three payment methods for a chosen plan.
func (s *Service) OptionsMessage(plan config.Plan) string {
	return fmt.Sprintf(`💳 *Formas de Pagamento* 💳

Plano: *%s*
Valor: *R$ %.2f*

━━━━━━━━━━━━━━━━━━━

Escolha como deseja pagar:

1️⃣ *PIX* (Aprovação instantânea) ⚡
   _Desconto de 5%%: R$ %.2f_

2️⃣ *Boleto Bancário*
   _Aprovação em até 2 dias úteis_

3️⃣ *Cartão de Crédito*
   _Aprovação instantânea_
   _Parcelamento em até 3x sem juros_

━━━━━━━━━━━━━━━━━━━

Digite *pix*, *boleto* ou *cartão* 😊`,
		plan.Name, plan.Price, plan.Price*pixDiscount)
}

func (s *Service) PixInstructions(plan config.Plan) string {
	discounted := plan.Price * pixDiscount

	return fmt.Sprintf(`🟢 *Pagamento via PIX* 🟢

Valor com desconto: *R$ %.2f*
Economia de 5%%! 🎉

━━━━━━━━━━━━━━━━━━━

*Como pagar:*

1️⃣ Abra o app do seu banco
2️⃣ Escolha PIX → Pix Copia e Cola
3️⃣ Cole o código abaixo:

%s

Ou use a chave PIX:
📱 *%s*
Nome: %s

━━━━━━━━━━━━━━━━━━━

⚡ *Aprovação instantânea!*
Assim que o pagamento for confirmado, você receberá seus dados de acesso! 🎉

_Após pagar, envie o comprovante aqui!_ 📸`,
		discounted, s.generatePixCode(discounted), s.cfg.Bot.PixKey, s.cfg.Bot.MerchantName)
}

func (s *Service) BoletoInstructions(plan config.Plan) string {
	return fmt.Sprintf(`📄 *Pagamento via Boleto* 📄

Valor: *R$ %.2f*
Vencimento: 3 dias

━━━━━━━━━━━━━━━━━━━

*Código de barras:*
%s

*Como pagar:*

1️⃣ Copie o código acima
2️⃣ Acesse seu internet banking
3️⃣ Cole o código de barras
4️⃣ Confirme o pagamento

━━━━━━━━━━━━━━━━━━━

⏰ *Aprovação:* até 2 dias úteis

Assim que compensar, você receberá seus dados! 😊

_Quer mais rapidez? Use PIX com 5%% OFF!_ ⚡`,
		plan.Price, s.generateBoletoCode())
}

func (s *Service) CardInstructions(plan config.Plan, phone string) string {
	return fmt.Sprintf(`💳 *Pagamento via Cartão* 💳

Valor: *R$ %.2f*

*Parcelamento disponível:*
1x de R$ %.2f (sem juros)
2x de R$ %.2f (sem juros)
3x de R$ %.2f (sem juros)

━━━━━━━━━━━━━━━━━━━

Para finalizar o pagamento, vou te enviar um link seguro!

🔒 *Link de pagamento:*
https://pagamento.exemplo.com/checkout/%s

_Clique no link e preencha os dados do cartão_

✅ *100%% seguro e criptografado*
⚡ *Aprovação instantânea*

Dúvidas? Estou aqui! 😊`,
		plan.Price, plan.Price, plan.Price/2, plan.Price/3, phone)
}

func (s *Service) generatePixCode(amount float64) string {
	suffix := s.now().UnixMilli() % 10000

	return fmt.Sprintf("00020126580014BR.GOV.BCB.PIX0136%s52040000530398654%d5802BR5913%s6009SAO PAULO62070503***6304%04d",
		s.cfg.Bot.PixKey, int(amount*100), s.cfg.Bot.MerchantName, suffix)
}

func (s *Service) generateBoletoCode() string {
	stamp := fmt.Sprintf("%d", s.now().UnixMilli())

	return fmt.Sprintf("23793381260000%s10459001234567890151234567890", stamp[len(stamp)-8:])
}
