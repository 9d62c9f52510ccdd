package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/rodrigofm92/chamado-import-service/internal/domain"
)

// Fallback values applied when an export row leaves a field blank. The
// interaction write is never given an empty body.
const (
	FallbackTitle       = "Sem Título"
	FallbackAssignee    = "Não Informado"
	FallbackDescription = "Nenhuma descrição fornecida."
)

// Primary dialect column names, as emitted by the upstream Jira export.
const (
	colSummary       = "Resumo"
	colItemID        = "ID da item"
	colStatus        = "Status"
	colCreatedAt     = "Criado"
	colStatusChanged = "Categoria do status alterada"
	colAssignee      = "Responsável"
	colDescription   = "Descrição"
)

// Alternative dialect column names.
const (
	altColID          = "ID"
	altColTitle       = "Título"
	altColStatus      = "Status"
	altColOpenedAt    = "Data de Abertura"
	altColUpdatedAt   = "Última Atualização"
	altColDescription = "Descrição"
	altColResolution  = "Solução"
	altColAssignee    = "Responsável"
)

// Dialect describes one supported CSV layout: its header schema, field
// delimiter and date format.
type Dialect struct {
	Name      domain.ImportDialect
	Delimiter rune
	Required  []string
}

// PrimaryDialect is the comma-delimited Jira export layout.
var PrimaryDialect = Dialect{
	Name:      domain.DialectPrimary,
	Delimiter: ',',
	Required:  []string{colSummary, colItemID, colStatus, colCreatedAt, colStatusChanged, colAssignee},
}

// AlternativeDialect is the semicolon-delimited layout.
var AlternativeDialect = Dialect{
	Name:      domain.DialectAlternative,
	Delimiter: ';',
	Required:  []string{altColID, altColTitle, altColStatus, altColOpenedAt, altColUpdatedAt, altColDescription, altColResolution, altColAssignee},
}

// Row is one raw CSV row keyed by header column.
type Row map[string]string

// CanonicalRow is the normalizer output consumed by the import orchestrator.
type CanonicalRow struct {
	ExternalID  string
	Title       string
	RawStatus   string
	OpenedAt    time.Time
	UpdatedAt   time.Time
	Assignee    string
	Description string
	Resolution  string
}

// MissingColumns returns the required columns absent from the file header.
// Headers are validated once against the first record; the pipeline assumes
// homogeneous headers for the remaining rows.
func MissingColumns(header []string, d Dialect) []string {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}
	var missing []string
	for _, col := range d.Required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// RowFromRecord zips a CSV record with the file header. Records shorter than
// the header leave the trailing columns empty.
func RowFromRecord(header, record []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		col = strings.TrimSpace(col)
		if i < len(record) {
			row[col] = record[i]
		} else {
			row[col] = ""
		}
	}
	return row
}

// Normalize parses one raw row of the given dialect into a canonical record.
// A row whose dates fail to parse or whose identifier is blank is invalid;
// the caller skips it and continues, so one bad row never aborts the batch.
func Normalize(row Row, d Dialect) (CanonicalRow, error) {
	if d.Name == domain.DialectAlternative {
		return normalizeAlternative(row)
	}
	return normalizePrimary(row)
}

func normalizePrimary(row Row) (CanonicalRow, error) {
	externalID := strings.TrimSpace(row[colItemID])
	if externalID == "" {
		return CanonicalRow{}, fmt.Errorf("row has no %q value", colItemID)
	}

	openedAt, err := parsePrimaryDate(row[colCreatedAt])
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("invalid opened-at date %q for %s: %w", row[colCreatedAt], externalID, err)
	}
	updatedAt, err := parsePrimaryDate(row[colStatusChanged])
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("invalid last-updated date %q for %s: %w", row[colStatusChanged], externalID, err)
	}

	return CanonicalRow{
		ExternalID:  externalID,
		Title:       orFallback(row[colSummary], FallbackTitle),
		RawStatus:   row[colStatus],
		OpenedAt:    openedAt,
		UpdatedAt:   updatedAt,
		Assignee:    orFallback(row[colAssignee], FallbackAssignee),
		Description: orFallback(row[colDescription], FallbackDescription),
	}, nil
}

func normalizeAlternative(row Row) (CanonicalRow, error) {
	externalID := strings.TrimSpace(row[altColID])
	if externalID == "" {
		return CanonicalRow{}, fmt.Errorf("row has no %q value", altColID)
	}

	openedAt, err := parseAlternativeDate(row[altColOpenedAt])
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("invalid opened-at date %q for %s: %w", row[altColOpenedAt], externalID, err)
	}
	updatedAt, err := parseAlternativeDate(row[altColUpdatedAt])
	if err != nil {
		return CanonicalRow{}, fmt.Errorf("invalid last-updated date %q for %s: %w", row[altColUpdatedAt], externalID, err)
	}

	return CanonicalRow{
		ExternalID:  externalID,
		Title:       orFallback(row[altColTitle], FallbackTitle),
		RawStatus:   row[altColStatus],
		OpenedAt:    openedAt,
		UpdatedAt:   updatedAt,
		Assignee:    orFallback(row[altColAssignee], FallbackAssignee),
		Description: orFallback(row[altColDescription], FallbackDescription),
		Resolution:  strings.TrimSpace(row[altColResolution]),
	}, nil
}

// monthTokens accepts both pt-BR and English month abbreviations, since
// exports arrive from installations in either locale.
var monthTokens = map[string]time.Month{
	"jan": time.January,
	"fev": time.February, "feb": time.February,
	"mar": time.March,
	"abr": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August, "aug": time.August,
	"set": time.September, "sep": time.September,
	"out": time.October, "oct": time.October,
	"nov": time.November,
	"dez": time.December, "dec": time.December,
}

// parsePrimaryDate parses the day-first "DD/Mon/YY hh:mm AM" format. The
// month token is rewritten to its number because time.Parse only knows
// English month names.
func parsePrimaryDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	parts := strings.SplitN(value, "/", 3)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("expected DD/Mon/YY date, got %q", value)
	}
	month, ok := monthTokens[strings.ToLower(parts[1])]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month token %q", parts[1])
	}
	rewritten := fmt.Sprintf("%s/%02d/%s", parts[0], int(month), parts[2])
	return time.Parse("02/01/06 03:04 PM", rewritten)
}

// parseAlternativeDate parses the day-first "DD/MM/YYYY HH:mm" format.
func parseAlternativeDate(value string) (time.Time, error) {
	return time.Parse("02/01/2006 15:04", strings.TrimSpace(value))
}

func orFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
