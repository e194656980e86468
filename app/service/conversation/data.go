package conversation

import (
	"strings"

	"github.com/elliotchance/pie/v2"
)

// Context keys used in the session context map.
const (
	ctxClientName          = "clientName"
	ctxSelectedPlan        = "selectedPlan"
	ctxExpectingSuggestion = "expectingSuggestion"
)

// terminationKeywords end the session from any state. The check runs before
// per-state dispatch, on exact match or prefix.
var terminationKeywords = []string{
	"encerrar", "finalizar", "sair", "resetar", "recomeçar", "recomecar", "fim",
}

// Intent keyword sets for the menu. Ties between categories resolve in
// declaration order: test, plans, human, support.
var (
	testKeywords    = []string{"teste", "test", "gratis", "grátis", "gratuito", "trial", "demo"}
	planKeywords    = []string{"plano", "plan", "pacote", "assinar"}
	humanKeywords   = []string{"humano", "atendente", "pessoa", "operador"}
	supportKeywords = []string{"ajuda", "suporte", "duvida", "dúvida", "problema"}

	yesKeywords  = []string{"sim", "quero", "pode"}
	backKeywords = []string{"voltar", "nao", "não"}

	suggestionKeywords = []string{"sugest", "ideia"}
)

func isTermination(text string) bool {
	return pie.Any(terminationKeywords, func(keyword string) bool {
		return text == keyword || strings.HasPrefix(text, keyword)
	})
}

func containsAny(text string, keywords []string) bool {
	return pie.Any(keywords, func(keyword string) bool {
		return strings.Contains(text, keyword)
	})
}
