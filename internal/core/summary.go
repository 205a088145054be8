package core

// SummaryInput is everything the aggregator needs for one period. The
// repository layer assembles it; the computation itself touches no
// storage.
type SummaryInput struct {
	Period            Period
	Members           []Member
	Expenses          []Expense       // soft-deleted rows already filtered out
	PaidExpenseIDs    map[int64]bool  // expenses with a PAID status this period
	SkippedExpenseIDs map[int64]bool  // recurring overrides for this period
	Savings           []Saving        // savings rows for this period
	Salaries          map[int64]int64 // user id -> salary cents for this period
	PendingApprovals  []Approval
	RequestingUserID  int64 // pending approvals requested by this user are not counted
}

type MemberIncome struct {
	UserID        int64
	Name          string
	DefaultSalary Money
	CurrentSalary Money
}

type MemberExpenses struct {
	UserID    int64
	Total     Money
	Remaining Money
}

type MemberSavings struct {
	UserID          int64
	Personal        Money
	Shared          Money
	RemainingBudget Money
}

type ExpenseSummary struct {
	PerMember       []MemberExpenses
	SharedTotal     Money
	SharedRemaining Money
	HouseholdTotal  Money
}

type SavingsSummary struct {
	PerMember     []MemberSavings
	PersonalTotal Money
	SharedTotal   Money
}

type MonthlySummary struct {
	Period           Period
	Income           []MemberIncome
	Expenses         ExpenseSummary
	Savings          SavingsSummary
	PendingApprovals int
}

// ComputeMonthlySummary aggregates a household's period into income,
// expense and savings summaries. Personal expenses accrue to their
// creator; shared ones to the household. Skipped expenses are excluded
// everywhere, paid ones only from the remaining totals.
func ComputeMonthlySummary(in SummaryInput) MonthlySummary {
	memberCount := len(in.Members)
	divisor := memberCount
	if divisor < 1 {
		divisor = 1
	}

	personalTotal := make(map[int64]float64, memberCount)
	personalRemaining := make(map[int64]float64, memberCount)
	var sharedTotal, sharedRemaining float64

	for _, e := range in.Expenses {
		if in.SkippedExpenseIDs[e.ID] {
			continue
		}
		due := MonthlyAmountCents(e, in.Period)
		if due == 0 {
			continue
		}
		if e.Type == ExpensePersonal {
			personalTotal[e.CreatedByID] += due
			if !in.PaidExpenseIDs[e.ID] {
				personalRemaining[e.CreatedByID] += due
			}
			continue
		}
		sharedTotal += due
		if !in.PaidExpenseIDs[e.ID] {
			sharedRemaining += due
		}
	}

	personal := make(map[int64]Saving, memberCount)
	shared := make(map[int64]Saving, memberCount)
	for _, s := range in.Savings {
		if s.IsShared {
			shared[s.UserID] = s
		} else {
			personal[s.UserID] = s
		}
	}

	out := MonthlySummary{Period: in.Period}
	var personalSum, sharedSavingSum, householdTotal int64

	for _, m := range in.Members {
		current := Money{Cents: in.Salaries[m.ID]}
		out.Income = append(out.Income, MemberIncome{
			UserID:        m.ID,
			Name:          m.Name,
			DefaultSalary: m.DefaultSalary,
			CurrentSalary: current,
		})

		total := RoundCents(personalTotal[m.ID])
		out.Expenses.PerMember = append(out.Expenses.PerMember, MemberExpenses{
			UserID:    m.ID,
			Total:     Money{Cents: total},
			Remaining: Money{Cents: RoundCents(personalRemaining[m.ID])},
		})
		householdTotal += total

		ps, ss := personal[m.ID], shared[m.ID]
		remaining := float64(current.Cents) - personalTotal[m.ID] - sharedTotal/float64(divisor)
		if ps.ReducesFromSalary {
			remaining -= float64(ps.Amount.Cents)
		}
		if ss.ReducesFromSalary {
			remaining -= float64(ss.Amount.Cents)
		}
		out.Savings.PerMember = append(out.Savings.PerMember, MemberSavings{
			UserID:          m.ID,
			Personal:        ps.Amount,
			Shared:          ss.Amount,
			RemainingBudget: Money{Cents: RoundCents(remaining)},
		})
		personalSum += ps.Amount.Cents
		sharedSavingSum += ss.Amount.Cents
	}

	out.Expenses.SharedTotal = Money{Cents: RoundCents(sharedTotal)}
	out.Expenses.SharedRemaining = Money{Cents: RoundCents(sharedRemaining)}
	out.Expenses.HouseholdTotal = Money{Cents: householdTotal + out.Expenses.SharedTotal.Cents}
	out.Savings.PersonalTotal = Money{Cents: personalSum}
	out.Savings.SharedTotal = Money{Cents: sharedSavingSum}

	for _, a := range in.PendingApprovals {
		if a.Status == StatusPending && a.RequestedByID != in.RequestingUserID {
			out.PendingApprovals++
		}
	}

	return out
}

// runningAvg averages a metric over the months where it was non-zero,
// so months before any record existed do not dilute the result.
type runningAvg struct {
	sum float64
	n   int64
}

func (a *runningAvg) add(cents int64) {
	if cents != 0 {
		a.sum += float64(cents)
		a.n++
	}
}

func (a runningAvg) mean() Money {
	if a.n == 0 {
		return Money{}
	}
	return Money{Cents: RoundCents(a.sum / float64(a.n))}
}

// AverageSummaries collapses a trailing window of monthly summaries
// (typically 12) into one averaged summary. Each metric averages only
// over the months where it was non-zero. The result carries the last
// summary's period and pending-approvals count.
func AverageSummaries(months []MonthlySummary) MonthlySummary {
	if len(months) == 0 {
		return MonthlySummary{}
	}

	type memberAvgs struct {
		defaultSalary, currentSalary   runningAvg
		expenseTotal, expenseRemaining runningAvg
		personalSaving, sharedSaving   runningAvg
		remainingBudget                runningAvg
	}
	byMember := map[int64]*memberAvgs{}
	names := map[int64]string{}
	var order []int64
	get := func(id int64) *memberAvgs {
		if m, ok := byMember[id]; ok {
			return m
		}
		m := &memberAvgs{}
		byMember[id] = m
		order = append(order, id)
		return m
	}

	var sharedTotal, sharedRemaining, householdTotal, personalSavings, sharedSavings runningAvg

	for _, s := range months {
		for _, inc := range s.Income {
			m := get(inc.UserID)
			names[inc.UserID] = inc.Name
			m.defaultSalary.add(inc.DefaultSalary.Cents)
			m.currentSalary.add(inc.CurrentSalary.Cents)
		}
		for _, ex := range s.Expenses.PerMember {
			m := get(ex.UserID)
			m.expenseTotal.add(ex.Total.Cents)
			m.expenseRemaining.add(ex.Remaining.Cents)
		}
		for _, sv := range s.Savings.PerMember {
			m := get(sv.UserID)
			m.personalSaving.add(sv.Personal.Cents)
			m.sharedSaving.add(sv.Shared.Cents)
			m.remainingBudget.add(sv.RemainingBudget.Cents)
		}
		sharedTotal.add(s.Expenses.SharedTotal.Cents)
		sharedRemaining.add(s.Expenses.SharedRemaining.Cents)
		householdTotal.add(s.Expenses.HouseholdTotal.Cents)
		personalSavings.add(s.Savings.PersonalTotal.Cents)
		sharedSavings.add(s.Savings.SharedTotal.Cents)
	}

	last := months[len(months)-1]
	out := MonthlySummary{
		Period:           last.Period,
		PendingApprovals: last.PendingApprovals,
	}
	for _, id := range order {
		m := byMember[id]
		out.Income = append(out.Income, MemberIncome{
			UserID:        id,
			Name:          names[id],
			DefaultSalary: m.defaultSalary.mean(),
			CurrentSalary: m.currentSalary.mean(),
		})
		out.Expenses.PerMember = append(out.Expenses.PerMember, MemberExpenses{
			UserID:    id,
			Total:     m.expenseTotal.mean(),
			Remaining: m.expenseRemaining.mean(),
		})
		out.Savings.PerMember = append(out.Savings.PerMember, MemberSavings{
			UserID:          id,
			Personal:        m.personalSaving.mean(),
			Shared:          m.sharedSaving.mean(),
			RemainingBudget: m.remainingBudget.mean(),
		})
	}
	out.Expenses.SharedTotal = sharedTotal.mean()
	out.Expenses.SharedRemaining = sharedRemaining.mean()
	out.Expenses.HouseholdTotal = householdTotal.mean()
	out.Savings.PersonalTotal = personalSavings.mean()
	out.Savings.SharedTotal = sharedSavings.mean()

	return out
}
