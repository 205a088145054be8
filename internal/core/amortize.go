package core

// installmentStep maps an installment cadence to its month stride.
func installmentStep(f InstallmentFrequency) (int, bool) {
	switch f {
	case InstallmentMonthly:
		return 1, true
	case InstallmentQuarterly:
		return 3, true
	case InstallmentSemiAnnual:
		return 6, true
	default:
		return 0, false
	}
}

// MonthlyAmountCents normalizes any expense schedule into the amount
// due in the target period, in (possibly fractional) cents. It is a
// pure function of its inputs: no clock, no I/O.
//
// The caller rounds via RoundCents when aggregating; rounding inside
// this function would compound across months.
func MonthlyAmountCents(e Expense, p Period) float64 {
	amount := float64(e.Amount.Cents)

	if e.Category == CategoryOneTime {
		if e.Strategy == StrategyInstallments && e.Count > 0 {
			if step, ok := installmentStep(e.Installments); ok {
				return oneTimeInstallmentCents(e, p, step)
			}
		}
		if p.Month == e.Month && p.Year == e.Year {
			return amount
		}
		return 0
	}

	if e.Frequency == FrequencyYearly {
		switch e.Strategy {
		case StrategyFull:
			if p.Month == e.PaymentMonth {
				return amount
			}
			return 0
		case StrategyInstallments:
			// The cadence anchors on the month the expense was created.
			anchor := int(e.CreatedAt.Month())
			switch e.Installments {
			case InstallmentQuarterly:
				if monthsMod(p.Month-anchor, 3) == 0 {
					return amount / 4
				}
				return 0
			case InstallmentSemiAnnual:
				if monthsMod(p.Month-anchor, 6) == 0 {
					return amount / 2
				}
				return 0
			default:
				return amount / 12
			}
		default:
			return amount / 12
		}
	}

	// Monthly recurring: the full amount is due every month.
	return amount
}

// oneTimeInstallmentCents pays amount/count (rounded to whole cents per
// installment) on every step-th month starting at the expense's own
// month/year, for count installments.
func oneTimeInstallmentCents(e Expense, p Period, step int) float64 {
	diff := p.Index() - Period{Month: e.Month, Year: e.Year}.Index()
	if diff < 0 || diff%step != 0 || diff/step >= e.Count {
		return 0
	}
	per := RoundCents(float64(e.Amount.Cents) / float64(e.Count))
	return float64(per)
}

func monthsMod(n, m int) int {
	return ((n % m) + m) % m
}
