// Package advisor builds finance prompts from an owner's data and forwards
// them to a language model.
package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

// recentLimit is how many transactions Ask puts in front of the model.
const recentLimit = 20

type (
	// Reporter serves every analytics view from one snapshot.
	Reporter interface {
		Report(ctx context.Context, ownerID int64) (analytics.Report, error)
	}

	Lister interface {
		ListTransactions(ctx context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error)
	}
)

type Gateway struct {
	completer Completer
	reports   Reporter
	txs       Lister
}

func NewGateway(completer Completer, reports Reporter, txs Lister) *Gateway {
	return &Gateway{completer: completer, reports: reports, txs: txs}
}

// Insights asks the model for three tips. When the reply holds no usable
// insights list, the raw reply is returned as the single tip.
func (g *Gateway) Insights(ctx context.Context, ownerID int64) ([]string, error) {
	r, err := g.reports.Report(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	raw, err := g.completer.Complete(ctx, insightsPrompt(r.Summary, r.ExpenseBreakdown()))
	if err != nil {
		return nil, err
	}
	return parseInsights(raw), nil
}

// Ask answers a free-form question with the owner's recent transactions as
// context.
func (g *Gateway) Ask(ctx context.Context, ownerID int64, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", core.Invalid("question is required")
	}
	recent, err := g.txs.ListTransactions(ctx, ownerID, core.ListFilter{Limit: recentLimit})
	if err != nil {
		return "", err
	}
	return g.completer.Complete(ctx, askPrompt(recent, question))
}

func insightsPrompt(s core.Summary, breakdown []core.CategoryTotal) string {
	parts := make([]string, 0, len(breakdown))
	for _, c := range breakdown {
		parts = append(parts, fmt.Sprintf("%s: $%s", c.Category, c.Total))
	}
	cats := strings.Join(parts, ", ")
	if cats == "" {
		cats = "No expense data yet"
	}

	var b strings.Builder
	b.WriteString("You are a concise personal finance advisor. Analyze this financial data and give 3 brief actionable tips:\n")
	fmt.Fprintf(&b, "Total Income: $%s\n", s.TotalIncome)
	fmt.Fprintf(&b, "Total Expenses: $%s\n", s.TotalExpenses)
	fmt.Fprintf(&b, "Net Balance: $%s\n", s.NetBalance)
	fmt.Fprintf(&b, "Expense breakdown: %s\n", cats)
	b.WriteString(`Respond in JSON format: {"insights": ["tip1", "tip2", "tip3"]}`)
	return b.String()
}

func askPrompt(recent []core.Transaction, question string) string {
	lines := make([]string, 0, len(recent))
	for _, t := range recent {
		lines = append(lines, fmt.Sprintf("- %s: $%s for %s (%s) on %s",
			t.Type, t.Amount, t.Title, t.Category, t.Date.UTC().Format("2006-01-02")))
	}
	history := strings.Join(lines, "\n")
	if history == "" {
		history = "No transactions yet"
	}

	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Here are recent transactions:\n")
	b.WriteString(history)
	b.WriteString("\n")
	fmt.Fprintf(&b, "User question: %s\n", question)
	b.WriteString("Give a helpful, concise answer (2-3 sentences max).")
	return b.String()
}

func parseInsights(raw string) []string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return []string{raw}
	}

	var body struct {
		Insights []string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &body); err != nil || len(body.Insights) == 0 {
		return []string{raw}
	}
	return body.Insights
}
