package analytics

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

// StatementMeta is the header information printed on a statement.
type StatementMeta struct {
	Name        string
	Email       string
	GeneratedAt time.Time
}

// BuildStatementPDF renders r as a one-document A4 statement: the summary,
// the category breakdown and the monthly series.
func BuildStatementPDF(r Report, meta StatementMeta) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Finance Tracker Statement", false)
	pdf.SetCreator("fintrack", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Finance Tracker Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Account: %s <%s>", meta.Name, meta.Email)))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Generated: "+meta.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	s := r.Summary
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range [][2]string{
		{"Total income", s.TotalIncome.String()},
		{"Total expenses", s.TotalExpenses.String()},
		{"Net balance", s.NetBalance.String()},
		{"Savings rate", s.SavingsRate.StringFixed(1) + "%"},
	} {
		pdf.Cell(70, 7, row[0])
		pdf.CellFormat(40, 7, row[1], "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "By category")
	pdf.Ln(8)
	tableHeader(pdf, []string{"Category", "Type", "Total"}, []float64{70, 40, 40})
	pdf.SetFont("Helvetica", "", 11)
	if len(r.ByCategory) == 0 {
		pdf.Cell(0, 7, "No transactions yet")
		pdf.Ln(7)
	}
	for _, c := range r.ByCategory {
		pdf.CellFormat(70, 7, tr(c.Category), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, c.Type.String(), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, c.Total.String(), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Monthly")
	pdf.Ln(8)
	tableHeader(pdf, []string{"Month", "Income", "Expenses"}, []float64{40, 40, 40})
	pdf.SetFont("Helvetica", "", 11)
	for _, m := range r.Monthly {
		pdf.CellFormat(40, 7, m.Month, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, m.Income.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, m.Expenses.String(), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render statement pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func tableHeader(pdf *gofpdf.Fpdf, titles []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 11)
	for i, t := range titles {
		align := "L"
		if i > 0 && t != "Type" {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, t, "B", 0, align, false, 0, "")
	}
	pdf.Ln(7)
}
