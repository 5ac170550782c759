package pin

import (
	"context"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jcvalle/pagosbot/internal/ledger"
)

// DocumentCache provides a local copy of a remote document.
type DocumentCache interface {
	Resolve(ctx context.Context, remotePath string) (string, error)
}

// Validator checks a guardian-supplied PIN against the PIN ledger, a
// two-column sheet of (student id, pin) pairs with one header row.
// Validation is fail-closed: every error path reads as an invalid PIN.
type Validator struct {
	cache      DocumentCache
	remotePath string
	logger     *zap.Logger
}

func NewValidator(cache DocumentCache, remotePath string, logger *zap.Logger) *Validator {
	return &Validator{cache: cache, remotePath: remotePath, logger: logger}
}

// Validate reports whether any row matches both the student id and the pin.
// Comparison is case-sensitive on the pin's stringified cell value.
func (v *Validator) Validate(ctx context.Context, studentID, pin string) bool {
	localPath, err := v.cache.Resolve(ctx, v.remotePath)
	if err != nil {
		v.logger.Error("resolving pin ledger", zap.Error(err))
		return false
	}

	f, err := excelize.OpenFile(localPath)
	if err != nil {
		v.logger.Error("opening pin ledger", zap.Error(err))
		return false
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		v.logger.Error("pin ledger has no sheets")
		return false
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		v.logger.Error("reading pin ledger", zap.Error(err))
		return false
	}

	valid := false
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		if ledger.CanonicalID(row[0]) == studentID && row[1] == pin {
			valid = true
		}
	}
	return valid
}
