package ledger

import (
	"math"
	"strings"
	"time"

	"github.com/jcvalle/pagosbot/internal/models"
)

// ComputeDebt derives the payment status of a student as of a given moment.
// A month is pending when it is at or before the asOf month and its paid
// indicator is blank. The function is pure: injecting asOf pins the current
// month for tests.
func ComputeDebt(s *models.Student, asOf time.Time) models.DebtSummary {
	current := int(asOf.Month())

	var pending []string
	for i, month := range models.Months {
		if i+1 > current {
			break
		}
		if strings.TrimSpace(s.Months[month]) == "" {
			pending = append(pending, strings.ToUpper(month))
		}
	}

	total := math.Round(s.MonthlyFee*float64(len(pending))*100) / 100

	return models.DebtSummary{
		MonthlyFee:    s.MonthlyFee,
		PendingMonths: pending,
		TotalDebt:     total,
		UpToDate:      len(pending) == 0,
	}
}
