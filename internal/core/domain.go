package core

import (
	"errors"
	"strings"
	"time"
)

const (
	ExpensePersonal ExpenseType = "PERSONAL"
	ExpenseShared   ExpenseType = "SHARED"

	CategoryRecurring ExpenseCategory = "RECURRING"
	CategoryOneTime   ExpenseCategory = "ONE_TIME"

	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"

	StrategyFull         YearlyStrategy = "FULL"
	StrategyInstallments YearlyStrategy = "INSTALLMENTS"

	InstallmentMonthly    InstallmentFrequency = "MONTHLY"
	InstallmentQuarterly  InstallmentFrequency = "QUARTERLY"
	InstallmentSemiAnnual InstallmentFrequency = "SEMI_ANNUAL"
)

type (
	ExpenseType          string
	ExpenseCategory      string
	Frequency            string
	YearlyStrategy       string
	InstallmentFrequency string

	// Period identifies a calendar month. Month is 1-based, Year is the
	// full four-digit year (no century inference).
	Period struct {
		Month int
		Year  int
	}

	Money struct {
		Cents int64
	}

	// Member is a household member as seen by the engine. Role comes
	// from the membership resolver and is informational here.
	Member struct {
		ID            int64
		HouseholdID   int64
		Name          string
		Role          string
		DefaultSalary Money
	}

	// Expense is a recurring or one-off household or personal cost.
	// Exactly one schedule shape applies per (Category, Frequency,
	// Strategy) combination; fields irrelevant to the active shape stay
	// at their zero value.
	Expense struct {
		ID           int64
		HouseholdID  int64
		CreatedByID  int64
		Type         ExpenseType
		Name         string
		Amount       Money
		Category     ExpenseCategory
		Frequency    Frequency
		Strategy     YearlyStrategy
		Installments InstallmentFrequency
		Count        int // number of installments for one-time installment plans
		PaymentMonth int // 1-12, yearly full payment month
		Month        int // one-time: month due, or first installment month
		Year         int
		PaidByUserID *int64 // nil means split equally among members
		CreatedAt    time.Time
		DeletedAt    *time.Time
	}

	// Saving is one balance keyed by (user, month, year, shared flag).
	Saving struct {
		UserID            int64
		Month             int
		Year              int
		IsShared          bool
		Amount            Money
		ReducesFromSalary bool
	}

	// Settlement is the immutable audit record of a finalized monthly
	// balance transfer. At most one exists per (household, month, year).
	Settlement struct {
		ID           int64
		HouseholdID  int64
		Month        int
		Year         int
		Amount       Money
		PaidByUserID int64
		PaidToUserID int64
		PaidAt       time.Time
	}
)

var (
	ErrInvalidMonth            = errors.New("month must be between 1 and 12")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrEmptyName               = errors.New("expense name cannot be empty")
	ErrUnknownCategory         = errors.New("unknown expense category")
	ErrInvalidInstallmentCount = errors.New("installment count must be positive")
	ErrUnknownInstallment      = errors.New("unknown installment frequency")
)

// PeriodOf extracts the calendar period from a point in time.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Index maps the period onto a linear month axis, so distances between
// periods are plain subtractions.
func (p Period) Index() int {
	return p.Year*12 + (p.Month - 1)
}

// AddMonths returns the period n months after p (n may be negative).
func (p Period) AddMonths(n int) Period {
	idx := p.Index() + n
	return Period{Month: idx%12 + 1, Year: idx / 12}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if e.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	switch e.Category {
	case CategoryOneTime:
		if e.Strategy == StrategyInstallments {
			if e.Count <= 0 {
				return ErrInvalidInstallmentCount
			}
			if _, ok := installmentStep(e.Installments); !ok {
				return ErrUnknownInstallment
			}
		}
		return Period{Month: e.Month, Year: e.Year}.Validate()
	case CategoryRecurring:
		if e.Frequency == FrequencyYearly && e.Strategy == StrategyFull {
			if e.PaymentMonth < 1 || e.PaymentMonth > 12 {
				return ErrInvalidMonth
			}
		}
		return nil
	default:
		return ErrUnknownCategory
	}
}

// Skippable reports whether a per-period skip override makes sense for
// this expense. Only recurring expenses can be skipped.
func (e Expense) Skippable() bool {
	return e.Category == CategoryRecurring
}
