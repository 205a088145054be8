package core

import "fmt"

// SettlementResult is the net transfer needed to equalize shared
// contributions for one period. A zero Amount means nobody owes
// anybody; OwedBy/OwedTo are zero in that case.
type SettlementResult struct {
	Amount       Money
	OwedByUserID int64
	OwedToUserID int64
	Message      string
	IsSettled    bool
}

// ComputeSettlement nets each member's actual payments against their
// fair share of the household's shared expenses for the period.
//
// Expenses with a payer credit that member in full; unassigned
// expenses are treated as paid equally by everyone. Every member's
// fair share accrues amount/memberCount regardless of payer. The
// first member with a positive balance is the creditor, the first
// with a negative one the debtor. That pick is exact for two-member
// households; N>2 netting is deliberately not attempted here.
func ComputeSettlement(members []Member, shared []Expense, skipped map[int64]bool, requestingUserID int64, p Period) SettlementResult {
	count := len(members)
	if count == 0 {
		return SettlementResult{Message: "Nothing to settle for this period"}
	}

	paid := make(map[int64]float64, count)
	fairShare := make(map[int64]float64, count)

	for _, e := range shared {
		if skipped[e.ID] {
			continue
		}
		due := MonthlyAmountCents(e, p)
		if due == 0 {
			continue
		}
		if e.PaidByUserID != nil {
			paid[*e.PaidByUserID] += due
		} else {
			split := due / float64(count)
			for _, m := range members {
				paid[m.ID] += split
			}
		}
		share := due / float64(count)
		for _, m := range members {
			fairShare[m.ID] += share
		}
	}

	var creditor, debtor *Member
	for i := range members {
		balance := RoundCents(paid[members[i].ID] - fairShare[members[i].ID])
		if balance > 0 && creditor == nil {
			creditor = &members[i]
		}
		if balance < 0 && debtor == nil {
			debtor = &members[i]
		}
	}

	if creditor == nil || debtor == nil {
		return SettlementResult{Message: "Nothing to settle for this period"}
	}

	amount := Money{Cents: RoundCents(paid[creditor.ID] - fairShare[creditor.ID])}
	if amount.Cents == 0 {
		return SettlementResult{Message: "Nothing to settle for this period"}
	}

	return SettlementResult{
		Amount:       amount,
		OwedByUserID: debtor.ID,
		OwedToUserID: creditor.ID,
		Message:      settlementMessage(*debtor, *creditor, amount, requestingUserID),
	}
}

// settlementMessage phrases the transfer relative to whoever asked.
func settlementMessage(debtor, creditor Member, amount Money, requestingUserID int64) string {
	switch requestingUserID {
	case debtor.ID:
		return fmt.Sprintf("You owe %s %s", creditor.Name, amount.Format())
	case creditor.ID:
		return fmt.Sprintf("%s owes you %s", debtor.Name, amount.Format())
	default:
		return fmt.Sprintf("%s owes %s %s", debtor.Name, creditor.Name, amount.Format())
	}
}
