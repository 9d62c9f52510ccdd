package importer

import (
	"strings"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// Fixed vocabularies for the three canonical buckets. Matching is
// case-insensitive and trimmed, against whole tokens only.
var (
	concludedTokens = map[string]bool{
		"resolvido":    true,
		"resolvida":    true,
		"concluído":    true,
		"concluída":    true,
		"concluído(a)": true,
		"fechado":      true,
		"encerrado":    true,
	}
	cancelledTokens = map[string]bool{
		"cancelado":    true,
		"cancelada":    true,
		"cancelado(a)": true,
	}
	openTokens = map[string]bool{
		"em aberto":               true,
		"aberto":                  true,
		"em andamento":            true,
		"sob análise":             true,
		"itens pendentes":         true,
		"aguardando pelo suporte": true,
		"processando (atribuído)": true,
		"aguardando atendimento":  true,
	}
)

// MapStatus folds a free-text status into one of the three canonical values.
// Unrecognized tokens map to open; that is a fail-safe policy, not an error.
func MapStatus(raw string) domain.TicketStatus {
	token := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case concludedTokens[token]:
		return domain.TicketStatusConcluded
	case cancelledTokens[token]:
		return domain.TicketStatusCancelled
	case openTokens[token]:
		return domain.TicketStatusOpen
	default:
		return domain.TicketStatusOpen
	}
}
