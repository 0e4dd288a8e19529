package core

import "github.com/shopspring/decimal"

// Summary aggregates every transaction of one owner.
type Summary struct {
	TotalIncome   Money
	TotalExpenses Money
	// NetBalance may be negative.
	NetBalance  Money
	SavingsRate decimal.Decimal // percent, one decimal place
}

// CategoryTotal is the sum for one (category, type) pair.
type CategoryTotal struct {
	Category string
	Type     TransactionType
	Total    Money
}

// MonthlyTotal holds both sides for a "YYYY-MM" month key.
type MonthlyTotal struct {
	Month    string
	Income   Money
	Expenses Money
}
