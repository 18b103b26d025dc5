package assessment

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Score returns correct / total * 100 rounded to 2 decimal places, or 0 when total is 0.
// Score never exceeds 100.
func Score(correct, total int) decimal.Decimal {
	if total <= 0 || correct <= 0 {
		return decimal.Zero
	}
	if correct > total {
		correct = total
	}
	return decimal.NewFromInt(int64(correct)).Mul(hundred).DivRound(decimal.NewFromInt(int64(total)), 2)
}

// Passed reports whether correct / total * 100 >= passingScore, compared exactly.
// An assessment without questions is never passed.
func Passed(correct, total, passingScore int) bool {
	if total <= 0 {
		return false
	}
	if correct > total {
		correct = total
	}
	return correct*100 >= passingScore*total
}
