package models

// Months holds the lowercase month names in calendar order, matching the
// month columns of the tuition ledger and the keys of Student.Months.
var Months = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// Student is one row of the tuition ledger.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade"`
	// MonthlyFee is the normalized fee amount. It is 0 when the fee cell
	// could not be parsed as money; RawFeeCell keeps the original cell text
	// so a 0 fee can be told apart from a bad cell.
	MonthlyFee float64 `json:"monthly_fee"`
	RawFeeCell string  `json:"raw_fee_cell"`
	// Months maps each month name to the raw paid indicator from the
	// ledger. Any non-blank value counts as paid.
	Months map[string]string `json:"months"`
}

// DebtSummary is the payment status of a student at a point in time. It is
// derived on every query and never stored.
type DebtSummary struct {
	MonthlyFee    float64  `json:"monthly_fee"`
	PendingMonths []string `json:"pending_months"`
	TotalDebt     float64  `json:"total_debt"`
	UpToDate      bool     `json:"up_to_date"`
}
