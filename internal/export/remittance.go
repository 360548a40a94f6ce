package export

import (
	"bytes"
	"fmt"

	"github.com/SscSPs/fleet_settlement_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet  = "summary"
	PaymentsSheet = "payments"
	dateLayout    = "2006-01-02"
)

var paymentHeaders = []string{"Payment ID", "Statement ID", "Person ID", "Person Kind", "Payment Date", "Method", "Reference", "Amount", "Voided"}

// BuildRemittanceXLSX renders a batch's payments for the bank run. Voided
// payments are listed but excluded from the total.
func BuildRemittanceXLSX(batch domain.PaymentBatch, rows []domain.StatementPayment, statements map[string]domain.Statement) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(PaymentsSheet); err != nil {
		return nil, fmt.Errorf("create payments sheet: %w", err)
	}

	for i, h := range paymentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(PaymentsSheet, cell, h)
	}

	total := decimal.Zero
	active := 0
	for i, row := range rows {
		stmt := statements[row.StatementID]
		values := []any{
			row.PaymentID,
			row.StatementID,
			stmt.PersonID,
			string(stmt.PersonKind),
			row.PaymentDate.Format(dateLayout),
			row.PaymentMethodID,
			derefString(row.ReferenceNumber),
			row.Amount.StringFixed(2),
			row.Voided,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, i+2)
			_ = f.SetCellValue(PaymentsSheet, cell, v)
		}
		if !row.Voided {
			total = total.Add(row.Amount)
			active++
		}
	}

	summary := [][2]any{
		{"Payment Batch", batch.BatchID},
		{"Batch Date", batch.BatchDate.Format(dateLayout)},
		{"Period", batch.PeriodFrom.Format(dateLayout) + " - " + batch.PeriodTo.Format(dateLayout)},
		{"Status", string(batch.Status)},
		{"Payments", active},
		{"Total", total.StringFixed(2)},
	}
	for i, kv := range summary {
		row := i + 1
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(SummarySheet, fmt.Sprintf("B%d", row), kv[1])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write remittance workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
