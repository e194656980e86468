package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jax91/bot-iptv-whatsapp/app/client/wagate"
	"github.com/jax91/bot-iptv-whatsapp/app/config"
	"github.com/jax91/bot-iptv-whatsapp/app/service/payment"
	"github.com/jax91/bot-iptv-whatsapp/app/service/session"
	"github.com/jax91/bot-iptv-whatsapp/app/service/trial"
	"github.com/jax91/bot-iptv-whatsapp/app/store"

	"github.com/samber/do"
)

const groupSuffix = "@g.us"

type handlerFunc func(ctx context.Context, id, raw, text string) error

// Service drives the scripted sales funnel: one deterministic state machine
// over normalized inbound text, per correspondent session.
type Service struct {
	cfg        *config.Config
	sessions   *session.Service
	trialSvc   *trial.Service
	paymentSvc *payment.Service
	repo       store.Repository
	sender     wagate.Sender
	now        func() time.Time

	handlers map[session.State]handlerFunc
}

func New(di *do.Injector) (*Service, error) {
	return newService(
		do.MustInvoke[*config.Config](di),
		do.MustInvoke[*session.Service](di),
		do.MustInvoke[*trial.Service](di),
		do.MustInvoke[*payment.Service](di),
		do.MustInvoke[store.Repository](di),
		do.MustInvoke[*wagate.Client](di),
		time.Now,
	), nil
}

func newService(
	cfg *config.Config,
	sessions *session.Service,
	trialSvc *trial.Service,
	paymentSvc *payment.Service,
	repo store.Repository,
	sender wagate.Sender,
	now func() time.Time,
) *Service {
	s := &Service{
		cfg:        cfg,
		sessions:   sessions,
		trialSvc:   trialSvc,
		paymentSvc: paymentSvc,
		repo:       repo,
		sender:     sender,
		now:        now,
	}

	// HUMAN_TRANSFER is resolved before dispatch and has no handler here.
	s.handlers = map[session.State]handlerFunc{
		session.StateInitial:        s.handleInitial,
		session.StateMenu:           s.handleMenu,
		session.StateViewingPlans:   s.handleViewingPlans,
		session.StateRequestingTest: s.handleNameCollection,
		session.StateCollectingName: s.handleNameCollection,
		session.StateSelectingPlan:  s.handleSelectingPlan,
		session.StatePaymentInfo:    s.handlePaymentInfo,
		session.StateSupport:        s.handleSupport,
		session.StateFeedback:       s.handleFeedback,
	}

	return s
}

// HandleMessage runs one conversational turn. Errors are contained: the
// correspondent gets an apology, other sessions are unaffected.
func (s *Service) HandleMessage(ctx context.Context, senderID, text string) error {
	if strings.HasSuffix(senderID, groupSuffix) {
		return nil
	}

	s.sessions.Touch(senderID)
	s.archive(ctx, senderID, text, store.DirectionReceived)

	raw := strings.TrimSpace(text)
	normalized := strings.ToLower(raw)

	// Termination keywords override every state.
	if isTermination(normalized) {
		s.endSession(ctx, senderID)
		return nil
	}

	sess := s.sessions.Get(senderID)

	// Awaiting a human operator: archive only, no automatic reply.
	if sess.Current == session.StateHumanTransfer {
		return nil
	}

	handler, ok := s.handlers[sess.Current]
	if !ok {
		handler = s.handleInitial
	}

	if err := handler(ctx, senderID, raw, normalized); err != nil {
		slog.Error("Conversation turn failed",
			"sender", senderID,
			"state", sess.Current,
			"error", err)
		s.send(ctx, senderID, errorMessage)

		return fmt.Errorf("handle state %s: %w", sess.Current, err)
	}

	return nil
}

func (s *Service) handleInitial(ctx context.Context, id, _, _ string) error {
	s.send(ctx, id, s.welcomeMessage())
	s.sessions.Set(id, session.StateMenu, nil)
	return nil
}

func (s *Service) handleMenu(ctx context.Context, id, _, text string) error {
	if len(text) == 1 && text >= "1" && text <= "6" {
		switch text {
		case "1", "3":
			s.showPlans(ctx, id)
		case "2":
			s.startTestRequest(ctx, id)
		case "4":
			s.transferToHuman(ctx, id)
		case "5":
			s.showSupport(ctx, id)
		case "6":
			s.endSession(ctx, id)
		}
		return nil
	}

	// Tie-break between categories is declaration order.
	switch {
	case containsAny(text, testKeywords):
		s.startTestRequest(ctx, id)
	case containsAny(text, planKeywords):
		s.showPlans(ctx, id)
	case containsAny(text, humanKeywords):
		s.transferToHuman(ctx, id)
	case containsAny(text, supportKeywords):
		s.showSupport(ctx, id)
	default:
		s.send(ctx, id, unknownInputMessage)
	}

	return nil
}

func (s *Service) handleViewingPlans(ctx context.Context, id, _, text string) error {
	if containsAny(text, []string{"teste", "test"}) {
		s.startTestRequest(ctx, id)
		return nil
	}

	number, err := strconv.Atoi(text)
	if err != nil || number < 1 || number > len(s.cfg.Plans) {
		s.send(ctx, id, s.planRangeMessage())
		return nil
	}

	plan := s.cfg.Plans[number-1]
	s.send(ctx, id, confirmPlanMessage(plan))
	s.sessions.Set(id, session.StateSelectingPlan, map[string]any{ctxSelectedPlan: number - 1})

	return nil
}

func (s *Service) handleNameCollection(ctx context.Context, id, raw, _ string) error {
	name := raw
	if length := len([]rune(name)); length < 2 || length > 50 {
		s.send(ctx, id, namePromptMessage)
		return nil
	}

	s.send(ctx, id, generatingTestMessage(name))

	return s.generateAndSendTrial(ctx, id, name)
}

func (s *Service) generateAndSendTrial(ctx context.Context, id, name string) error {
	account, err := s.trialSvc.Issue(ctx, id, name)

	switch {
	case errors.Is(err, trial.ErrAlreadyIssued):
		s.send(ctx, id, alreadyTestedMessage)
		s.sessions.Set(id, session.StateMenu, map[string]any{ctxClientName: name})
		return nil

	case errors.Is(err, trial.ErrActiveExists):
		active, activeErr := s.trialSvc.GetActive(ctx, id)
		if activeErr != nil {
			return activeErr
		}

		if active != nil {
			s.send(ctx, id, s.trialSvc.StatusMessage(active))
		} else {
			s.send(ctx, id, alreadyTestedMessage)
		}
		s.sessions.Set(id, session.StateMenu, map[string]any{ctxClientName: name})
		return nil

	case errors.Is(err, trial.ErrGenerationExhausted):
		// Already reported as an operational anomaly by the issuer.
		s.send(ctx, id, errorMessage)
		s.sessions.Set(id, session.StateMenu, map[string]any{ctxClientName: name})
		return nil

	case err != nil:
		return err
	}

	s.send(ctx, id, s.trialSvc.AccessInstructions(account, name))
	s.send(ctx, id, nextStepsMessage)

	s.sessions.Set(id, session.StateFeedback, map[string]any{
		ctxClientName:          name,
		ctxExpectingSuggestion: false,
	})

	return nil
}

func (s *Service) handleSelectingPlan(ctx context.Context, id, _, text string) error {
	switch {
	case containsAny(text, yesKeywords):
		s.startPaymentProcess(ctx, id)
	case containsAny(text, []string{"teste", "test"}):
		s.startTestRequest(ctx, id)
	case containsAny(text, backKeywords):
		s.showPlans(ctx, id)
	default:
		s.send(ctx, id, planConfirmPromptMessage)
	}

	return nil
}

func (s *Service) startPaymentProcess(ctx context.Context, id string) {
	plan, ok := s.selectedPlan(id)
	if !ok {
		s.showPlans(ctx, id)
		return
	}

	s.send(ctx, id, s.paymentSvc.OptionsMessage(plan))
	s.sessions.Set(id, session.StatePaymentInfo, nil)
}

func (s *Service) handlePaymentInfo(ctx context.Context, id, _, text string) error {
	plan, ok := s.selectedPlan(id)
	if !ok {
		plan = config.Plan{Name: "Plano Padrão", Price: 29.90}
	}

	switch {
	case strings.Contains(text, "pix"):
		s.send(ctx, id, s.paymentSvc.PixInstructions(plan))
	case strings.Contains(text, "boleto"):
		s.send(ctx, id, s.paymentSvc.BoletoInstructions(plan))
	case strings.Contains(text, "cartao"), strings.Contains(text, "cartão"):
		s.send(ctx, id, s.paymentSvc.CardInstructions(plan, id))
	default:
		s.send(ctx, id, paymentPromptMessage)
	}

	return nil
}

func (s *Service) handleSupport(ctx context.Context, id, _, text string) error {
	if answer, ok := supportAnswers[text]; ok {
		s.send(ctx, id, answer)
		return nil
	}

	if text == "5" || containsAny(text, humanKeywords) {
		s.transferToHuman(ctx, id)
		return nil
	}

	s.send(ctx, id, supportFallbackMessage)
	return nil
}

func (s *Service) handleFeedback(ctx context.Context, id, raw, text string) error {
	switch {
	case strings.Contains(text, "plan"):
		s.showPlans(ctx, id)
		return nil
	case containsAny(text, []string{"suporte", "ajuda"}):
		s.showSupport(ctx, id)
		return nil
	case text == "menu":
		return s.handleInitial(ctx, id, raw, text)
	}

	if expecting, _ := s.sessions.Data(id, ctxExpectingSuggestion); expecting == true {
		s.archive(ctx, id, "SUGESTAO: "+raw, store.DirectionReceived)
		s.send(ctx, id, suggestionThanksMessage)
		s.sessions.Set(id, session.StateMenu, map[string]any{ctxExpectingSuggestion: false})
		return nil
	}

	if containsAny(text, suggestionKeywords) {
		s.sessions.Set(id, session.StateFeedback, map[string]any{ctxExpectingSuggestion: true})
		s.send(ctx, id, suggestionPromptMessage)
		return nil
	}

	s.send(ctx, id, feedbackHintMessage)
	return nil
}

func (s *Service) showPlans(ctx context.Context, id string) {
	s.send(ctx, id, s.plansMessage())
	s.sessions.Set(id, session.StateViewingPlans, nil)
}

func (s *Service) startTestRequest(ctx context.Context, id string) {
	s.send(ctx, id, testIntroMessage)
	s.sessions.Set(id, session.StateRequestingTest, nil)
}

func (s *Service) showSupport(ctx context.Context, id string) {
	s.send(ctx, id, supportMenuMessage)
	s.sessions.Set(id, session.StateSupport, nil)
}

func (s *Service) transferToHuman(ctx context.Context, id string) {
	s.send(ctx, id, transferMessage)
	s.sessions.Set(id, session.StateHumanTransfer, nil)

	slog.Info("Correspondent waiting for a human operator",
		"sender", id,
		"telegram", true)
}

func (s *Service) endSession(ctx context.Context, id string) {
	s.send(ctx, id, s.closingMessage())
	s.sessions.Reset(id)
}

func (s *Service) selectedPlan(id string) (config.Plan, bool) {
	value, ok := s.sessions.Data(id, ctxSelectedPlan)
	if !ok {
		return config.Plan{}, false
	}

	index, ok := value.(int)
	if !ok || index < 0 || index >= len(s.cfg.Plans) {
		return config.Plan{}, false
	}

	return s.cfg.Plans[index], true
}

// send delivers one outbound text. Transport failures are logged and
// swallowed: the turn stays best-effort delivered, never conversation-fatal.
func (s *Service) send(ctx context.Context, id, text string) {
	if err := s.sender.Send(ctx, id, text); err != nil {
		slog.Error("Failed to send message",
			"recipient", id,
			"error", err)
		return
	}

	s.archive(ctx, id, text, store.DirectionSent)
}

func (s *Service) archive(ctx context.Context, id, text string, dir store.Direction) {
	if err := s.repo.AppendConversation(ctx, id, text, dir); err != nil {
		slog.Warn("Failed to archive message", "sender", id, "error", err)
	}
}
