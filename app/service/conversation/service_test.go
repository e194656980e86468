package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/service/payment"
	"github.com/jax91/bot-iptv-whatsapp/app/service/session"
	"github.com/jax91/bot-iptv-whatsapp/app/service/trial"
	"github.com/jax91/bot-iptv-whatsapp/app/store"

	"github.com/samber/do"
)

const phone = "5511999999999"

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return context.DeadlineExceeded
	}

	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) last(t *testing.T) string {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	svc      *Service
	sender   *fakeSender
	repo     *store.Memory
	sessions *session.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	repo := store.NewMemory()

	di := do.New()
	do.ProvideValue(di, cfg)
	do.ProvideValue[store.Repository](di, repo)

	sessions, err := session.New(di)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	trialSvc, err := trial.New(di)
	if err != nil {
		t.Fatalf("trial: %v", err)
	}

	paymentSvc, err := payment.New(di)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}

	sender := &fakeSender{}
	now := func() time.Time {
		return time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	}

	return &harness{
		svc:      newService(cfg, sessions, trialSvc, paymentSvc, repo, sender, now),
		sender:   sender,
		repo:     repo,
		sessions: sessions,
	}
}

func (h *harness) say(t *testing.T, text string) {
	t.Helper()

	if err := h.svc.HandleMessage(context.Background(), phone, text); err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
}

func (h *harness) state() session.State {
	return h.sessions.Get(phone).Current
}

func TestGroupMessagesIgnored(t *testing.T) {
	h := newHarness(t)

	if err := h.svc.HandleMessage(context.Background(), "1234-5678@g.us", "oi"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if h.sender.count() != 0 {
		t.Errorf("sent %d messages to a group, want 0", h.sender.count())
	}
	if stats := h.sessions.Stats(); stats.TotalSessions != 0 {
		t.Errorf("sessions = %d, want none created for groups", stats.TotalSessions)
	}
}

func TestFirstContactShowsMenu(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")

	if got := h.sender.last(t); !strings.Contains(got, "bem-vindo") {
		t.Errorf("welcome = %q, want greeting text", got)
	}
	if !strings.Contains(h.sender.last(t), "Boa tarde") {
		t.Errorf("greeting misses time of day: %q", h.sender.last(t))
	}
	if h.state() != session.StateMenu {
		t.Errorf("state = %s, want menu", h.state())
	}
}

func TestTrialHappyPath(t *testing.T) {
	h := newHarness(t)
	before := time.Now()

	h.say(t, "oi")
	h.say(t, "2")

	if !strings.Contains(h.sender.last(t), "Teste Gratuito") {
		t.Errorf("test intro = %q", h.sender.last(t))
	}
	if h.state() != session.StateRequestingTest {
		t.Fatalf("state = %s, want requesting_test", h.state())
	}

	h.say(t, "Maria")

	if !strings.Contains(h.sender.last(t), "planos") {
		t.Errorf("next steps = %q", h.sender.last(t))
	}

	access := h.sender.sent[len(h.sender.sent)-2]
	if !strings.Contains(access, "DADOS DE ACESSO") || !strings.Contains(access, "Maria") {
		t.Errorf("access message = %q", access)
	}

	if h.state() != session.StateFeedback {
		t.Errorf("state = %s, want feedback", h.state())
	}

	account, err := h.repo.FindActiveTrialByOwner(context.Background(), phone)
	if err != nil {
		t.Fatalf("find trial: %v", err)
	}
	if !strings.HasPrefix(account.Username, "test_") {
		t.Errorf("username = %q", account.Username)
	}

	wantExpiry := before.Add(4 * time.Hour)
	if account.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || account.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expires at = %v, want about %v", account.ExpiresAt, wantExpiry)
	}
	if got := account.FollowUpAt.Sub(account.ExpiresAt); got != 2*time.Hour {
		t.Errorf("follow-up offset = %v, want 2h", got)
	}

	owner, err := h.repo.FindOwnerByPhone(context.Background(), phone)
	if err != nil || !owner.HasUsedTrial {
		t.Errorf("owner = %+v, err = %v, want trial flag set", owner, err)
	}
}

func TestSecondTrialDenied(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "2")
	h.say(t, "Maria")

	// New conversation, same phone.
	h.say(t, "sair")
	h.say(t, "oi")
	h.say(t, "teste")
	h.say(t, "Maria")

	if !strings.Contains(h.sender.last(t), "já utilizou") {
		t.Errorf("reply = %q, want already-used notice", h.sender.last(t))
	}
	if h.state() != session.StateMenu {
		t.Errorf("state = %s, want menu", h.state())
	}
}

func TestNameLengthValidation(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "2")
	h.say(t, "A")

	if !strings.Contains(h.sender.last(t), "nome completo") {
		t.Errorf("reply = %q, want name re-prompt", h.sender.last(t))
	}
	if h.state() != session.StateRequestingTest {
		t.Errorf("state = %s, want requesting_test kept", h.state())
	}
}

func TestMenuKeywordTieBreak(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	// Matches both the test and plan categories; test wins.
	h.say(t, "quero um teste dos planos")

	if !strings.Contains(h.sender.last(t), "Teste Gratuito") {
		t.Errorf("reply = %q, want test intro", h.sender.last(t))
	}
	if h.state() != session.StateRequestingTest {
		t.Errorf("state = %s, want requesting_test", h.state())
	}
}

func TestMenuUnknownInput(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "xyzzy")

	if !strings.Contains(h.sender.last(t), "não entendi") {
		t.Errorf("reply = %q, want unknown-input text", h.sender.last(t))
	}
	if h.state() != session.StateMenu {
		t.Errorf("state = %s, want menu kept", h.state())
	}
}

func TestTerminationOverridesAnyState(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "1")
	h.say(t, "sair")

	if !strings.Contains(h.sender.last(t), "encerrado") {
		t.Errorf("reply = %q, want closing text", h.sender.last(t))
	}
	if h.state() != session.StateInitial {
		t.Errorf("state = %s, want initial after termination", h.state())
	}
}

func TestPlanPurchaseFlow(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "1")

	if h.state() != session.StateViewingPlans {
		t.Fatalf("state = %s, want viewing_plans", h.state())
	}
	if !strings.Contains(h.sender.last(t), "Nossos Planos") {
		t.Errorf("plans = %q", h.sender.last(t))
	}

	h.say(t, "2")

	if !strings.Contains(h.sender.last(t), "Plano Gold") {
		t.Errorf("confirmation = %q, want Plano Gold", h.sender.last(t))
	}
	if h.state() != session.StateSelectingPlan {
		t.Fatalf("state = %s, want selecting_plan", h.state())
	}

	h.say(t, "sim")

	if !strings.Contains(h.sender.last(t), "Formas de Pagamento") {
		t.Errorf("options = %q", h.sender.last(t))
	}
	if h.state() != session.StatePaymentInfo {
		t.Fatalf("state = %s, want payment_info", h.state())
	}

	h.say(t, "pix")

	if !strings.Contains(h.sender.last(t), "Pagamento via PIX") {
		t.Errorf("pix = %q", h.sender.last(t))
	}
}

func TestPlanSelectionOutOfRange(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "1")
	h.say(t, "9")

	if !strings.Contains(h.sender.last(t), "1 a 4") {
		t.Errorf("reply = %q, want range hint", h.sender.last(t))
	}
	if h.state() != session.StateViewingPlans {
		t.Errorf("state = %s, want viewing_plans kept", h.state())
	}
}

func TestPlanConfirmationGoBack(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "1")
	h.say(t, "2")
	h.say(t, "voltar")

	if h.state() != session.StateViewingPlans {
		t.Errorf("state = %s, want viewing_plans", h.state())
	}
}

func TestSupportFlow(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "5")

	if h.state() != session.StateSupport {
		t.Fatalf("state = %s, want support", h.state())
	}

	h.say(t, "2")

	if !strings.Contains(h.sender.last(t), "Problemas de Conexão") {
		t.Errorf("answer = %q", h.sender.last(t))
	}
	if h.state() != session.StateSupport {
		t.Errorf("state = %s, want support kept", h.state())
	}
}

func TestHumanTransferSilencesBot(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "4")

	if h.state() != session.StateHumanTransfer {
		t.Fatalf("state = %s, want human_transfer", h.state())
	}

	before := h.sender.count()
	h.say(t, "alguém aí?")

	if h.sender.count() != before {
		t.Error("bot replied while waiting for a human")
	}

	// Termination still works.
	h.say(t, "encerrar")
	if h.state() != session.StateInitial {
		t.Errorf("state = %s, want initial", h.state())
	}
}

func TestFeedbackSuggestionFlow(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "2")
	h.say(t, "Maria Silva")

	if h.state() != session.StateFeedback {
		t.Fatalf("state = %s, want feedback", h.state())
	}

	h.say(t, "tenho uma sugestão")

	if !strings.Contains(h.sender.last(t), "sugestão") {
		t.Errorf("prompt = %q", h.sender.last(t))
	}

	h.say(t, "adicionar canais de esporte")

	if !strings.Contains(h.sender.last(t), "Obrigado pela sugestão") {
		t.Errorf("thanks = %q", h.sender.last(t))
	}
	if h.state() != session.StateMenu {
		t.Errorf("state = %s, want menu", h.state())
	}

	found := false
	for _, entry := range h.repo.History(phone) {
		if strings.HasPrefix(entry.Message, "SUGESTAO: adicionar canais") {
			found = true
		}
	}
	if !found {
		t.Error("suggestion not archived")
	}
}

func TestFeedbackShortcuts(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "2")
	h.say(t, "Maria Silva")
	h.say(t, "quero ver os planos")

	if h.state() != session.StateViewingPlans {
		t.Errorf("state = %s, want viewing_plans", h.state())
	}
}

func TestSenderFailureIsContained(t *testing.T) {
	h := newHarness(t)
	h.sender.fail = true

	if err := h.svc.HandleMessage(context.Background(), phone, "oi"); err != nil {
		t.Errorf("err = %v, want delivery failure swallowed", err)
	}
	if h.state() != session.StateMenu {
		t.Errorf("state = %s, state should advance even when delivery fails", h.state())
	}
}

func TestConversationIsArchived(t *testing.T) {
	h := newHarness(t)

	h.say(t, "oi")
	h.say(t, "2")
	h.say(t, "Maria Silva")
	h.say(t, "menu")

	history := h.repo.History(phone)
	if len(history) == 0 {
		t.Fatal("no history recorded")
	}

	var in, out int
	for _, entry := range history {
		switch entry.Direction {
		case store.DirectionReceived:
			in++
		case store.DirectionSent:
			out++
		}
	}
	if in == 0 || out == 0 {
		t.Errorf("history in=%d out=%d, want both directions", in, out)
	}
}
