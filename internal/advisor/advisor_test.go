package advisor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// fakeLLM serves /v1/chat/completions and records the last request.
type fakeLLM struct {
	mu       sync.Mutex
	status   int
	reply    string
	noChoice bool
	lastAuth string
	lastBody map[string]any
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	f.lastAuth = r.Header.Get("Authorization")
	f.lastBody = map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&f.lastBody)

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		return
	}

	choices := []map[string]any{{
		"index":         0,
		"finish_reason": "stop",
		"message":       map[string]any{"role": "assistant", "content": f.reply},
	}}
	if f.noChoice {
		choices = []map[string]any{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"model":   "test-model",
		"choices": choices,
		"usage":   map[string]any{"total_tokens": 12},
	})
}

func newClient(t *testing.T, f *fakeLLM) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(ClientConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "sk-test",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, applog.Discard())
}

func TestOpenAIClientComplete(t *testing.T) {
	f := &fakeLLM{reply: "hello"}
	c := newClient(t, f)

	out, err := c.Complete(context.Background(), "hi there")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	assert.Equal(t, "Bearer sk-test", f.lastAuth)
	assert.Equal(t, "test-model", f.lastBody["model"])
	assert.InDelta(t, 0.7, f.lastBody["temperature"], 0.0001)
	msgs, ok := f.lastBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "hi there", msg["content"])
}

func TestOpenAIClientUpstreamFailures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		c := newClient(t, &fakeLLM{status: http.StatusInternalServerError})
		_, err := c.Complete(context.Background(), "x")
		assert.ErrorIs(t, err, core.ErrUpstream)
		assert.NotContains(t, err.Error(), "boom", "upstream detail stays in the log")
	})

	t.Run("no choices", func(t *testing.T) {
		c := newClient(t, &fakeLLM{noChoice: true})
		_, err := c.Complete(context.Background(), "x")
		assert.ErrorIs(t, err, core.ErrUpstream)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := NewOpenAIClient(ClientConfig{BaseURL: url, Timeout: time.Second}, applog.Discard())
		_, err := c.Complete(context.Background(), "x")
		assert.ErrorIs(t, err, core.ErrUpstream)
	})
}

type stubCompleter struct {
	prompt string
	reply  string
	err    error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

type stubReporter struct {
	report analytics.Report
	err    error
	calls  *int
}

func (s stubReporter) Report(context.Context, int64) (analytics.Report, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.report, s.err
}

type stubLister struct {
	filter core.ListFilter
	txs    []core.Transaction
}

func (s *stubLister) ListTransactions(_ context.Context, _ int64, f core.ListFilter) ([]core.Transaction, error) {
	s.filter = f
	return s.txs, nil
}

func TestInsightsPrompt(t *testing.T) {
	comp := &stubCompleter{reply: `{"insights": ["a", "b", "c"]}`}
	calls := 0
	rep := stubReporter{
		report: analytics.Report{
			Summary: core.Summary{
				TotalIncome:   core.Cents(500000),
				TotalExpenses: core.Cents(400000),
				NetBalance:    core.Cents(100000),
				SavingsRate:   decimal.NewFromInt(20),
			},
			ByCategory: []core.CategoryTotal{
				{Category: "food", Type: core.Expense, Total: core.Cents(80000)},
				{Category: "rent", Type: core.Expense, Total: core.Cents(320000)},
				{Category: "salary", Type: core.Income, Total: core.Cents(500000)},
			},
		},
		calls: &calls,
	}
	g := NewGateway(comp, rep, &stubLister{})

	tips, err := g.Insights(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tips)
	assert.Equal(t, 1, calls, "summary and breakdown come from one report")

	want := "You are a concise personal finance advisor. Analyze this financial data and give 3 brief actionable tips:\n" +
		"Total Income: $5000.00\n" +
		"Total Expenses: $4000.00\n" +
		"Net Balance: $1000.00\n" +
		"Expense breakdown: food: $800.00, rent: $3200.00\n" +
		`Respond in JSON format: {"insights": ["tip1", "tip2", "tip3"]}`
	assert.Equal(t, want, comp.prompt)
}

func TestInsightsNoExpenses(t *testing.T) {
	comp := &stubCompleter{reply: "{}"}
	g := NewGateway(comp, stubReporter{}, &stubLister{})

	tips, err := g.Insights(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"{}"}, tips)
	assert.Contains(t, comp.prompt, "Expense breakdown: No expense data yet")
	assert.Contains(t, comp.prompt, "Net Balance: $0.00")
}

func TestParseInsights(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain json", `{"insights":["x","y"]}`, []string{"x", "y"}},
		{"wrapped in prose", "Sure!\n```json\n{\"insights\": [\"save more\"]}\n```\nGood luck", []string{"save more"}},
		{"no braces", "just spend less", []string{"just spend less"}},
		{"broken json", `{"insights": [}`, []string{`{"insights": [}`}},
		{"missing key", `{"tips": ["a"]}`, []string{`{"tips": ["a"]}`}},
		{"empty list", `{"insights": []}`, []string{`{"insights": []}`}},
		{"reversed braces", "} oops {", []string{"} oops {"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseInsights(tc.raw))
		})
	}
}

func TestInsightsErrors(t *testing.T) {
	g := NewGateway(&stubCompleter{}, stubReporter{err: errors.New("db down")}, &stubLister{})
	_, err := g.Insights(context.Background(), 1)
	assert.Error(t, err)

	upstream := &stubCompleter{err: core.ErrUpstream}
	g = NewGateway(upstream, stubReporter{}, &stubLister{})
	_, err = g.Insights(context.Background(), 1)
	assert.ErrorIs(t, err, core.ErrUpstream)
}

func TestAskPrompt(t *testing.T) {
	comp := &stubCompleter{reply: "Spend less on food."}
	lister := &stubLister{txs: []core.Transaction{
		{Type: core.Expense, Amount: core.Cents(1250), Title: "Lunch", Category: "food",
			Date: time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)},
		{Type: core.Income, Amount: core.Cents(500000), Title: "Salary", Category: "job",
			Date: time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)},
	}}
	g := NewGateway(comp, stubReporter{}, lister)

	answer, err := g.Ask(context.Background(), 7, "How am I doing?")
	require.NoError(t, err)
	assert.Equal(t, "Spend less on food.", answer)
	assert.Equal(t, 20, lister.filter.Limit)
	assert.Nil(t, lister.filter.Type)

	want := "You are a personal finance assistant. Here are recent transactions:\n" +
		"- expense: $12.50 for Lunch (food) on 2025-02-03\n" +
		"- income: $5000.00 for Salary (job) on 2025-02-01\n" +
		"User question: How am I doing?\n" +
		"Give a helpful, concise answer (2-3 sentences max)."
	assert.Equal(t, want, comp.prompt)
}

func TestAskWithoutHistory(t *testing.T) {
	comp := &stubCompleter{reply: "ok"}
	g := NewGateway(comp, stubReporter{}, &stubLister{})

	_, err := g.Ask(context.Background(), 1, "Anything?")
	require.NoError(t, err)
	assert.True(t, strings.Contains(comp.prompt, "transactions:\nNo transactions yet\nUser question: Anything?"))
}

func TestAskRequiresQuestion(t *testing.T) {
	comp := &stubCompleter{}
	g := NewGateway(comp, stubReporter{}, &stubLister{})

	_, err := g.Ask(context.Background(), 1, "   ")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, comp.prompt, "no upstream call for an empty question")
}

func TestGatewayOverHTTP(t *testing.T) {
	f := &fakeLLM{reply: "Here you go: {\"insights\": [\"one\", \"two\", \"three\"]}"}
	g := NewGateway(newClient(t, f), stubReporter{}, &stubLister{})

	tips, err := g.Insights(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, tips)
}
