package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatSettlementOrg renders a settlement as an Org-mode block. Facts go
// in the PROPERTIES drawer; the headings below are left for notes.
func FormatSettlementOrg(s SettlementRecord) string {
	heading := fmt.Sprintf("** Settlement: %s %.4fg (%s)", s.Side, s.SizeGrams, shortID(s.PositionID))
	open := s.OpenTime.UTC().Format(time.RFC3339)
	close := s.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":ID: %s\n", s.PositionID))
	b.WriteString(fmt.Sprintf(":TRANSACTION_ID: %s\n", s.TransactionID))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", s.Side))
	b.WriteString(fmt.Sprintf(":SIZE_GRAMS: %.4f\n", s.SizeGrams))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.4f\n", s.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.4f\n", s.ExitPrice))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", close))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", s.RealizedPL))
	b.WriteString(fmt.Sprintf(":REASON: %s\n", s.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatSettlementsOrg renders multiple settlements separated by blank lines.
func FormatSettlementsOrg(recs []SettlementRecord) string {
	var b strings.Builder
	for i, s := range recs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatSettlementOrg(s))
	}
	return b.String()
}

// shortID trims the id prefix and keeps the first 8 characters of the
// rest, which for a ULID is the millisecond timestamp.
func shortID(full string) string {
	if i := strings.IndexByte(full, '_'); i >= 0 {
		full = full[i+1:]
	}
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
