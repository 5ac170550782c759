package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jcvalle/pagosbot/internal/models"
)

// Ledger layout. Column positions are fixed by agreement with the school
// administration; the first two rows are headers.
const (
	sheetName  = "Hoja1"
	headerRows = 2

	colName  = "A"
	colGrade = "B"
	colID    = "F"
	colFee   = "N"
)

// monthColumnLetters aligns with models.Months: enero in W through
// diciembre in AH.
var monthColumnLetters = []string{
	"W", "X", "Y", "Z", "AA", "AB",
	"AC", "AD", "AE", "AF", "AG", "AH",
}

var (
	idxName  = mustColumnIndex(colName)
	idxGrade = mustColumnIndex(colGrade)
	idxID    = mustColumnIndex(colID)
	idxFee   = mustColumnIndex(colFee)
	monthIdx = buildMonthIndexes()
)

func mustColumnIndex(letter string) int {
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		panic(err)
	}
	return n - 1
}

func buildMonthIndexes() map[string]int {
	idx := make(map[string]int, len(models.Months))
	for i, month := range models.Months {
		idx[month] = mustColumnIndex(monthColumnLetters[i])
	}
	return idx
}

// DocumentCache provides a local copy of a remote document.
type DocumentCache interface {
	Resolve(ctx context.Context, remotePath string) (string, error)
}

// Resolver looks students up in the tuition ledger.
type Resolver struct {
	cache      DocumentCache
	remotePath string
	logger     *zap.Logger
}

func NewResolver(cache DocumentCache, remotePath string, logger *zap.Logger) *Resolver {
	return &Resolver{cache: cache, remotePath: remotePath, logger: logger}
}

// FindStudent scans the whole ledger for id and returns (nil, nil) when no
// row matches. When duplicate rows share an id the last one in sheet order
// wins; that is the ledger's precedence rule, not an error.
func (r *Resolver) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	localPath, err := r.cache.Resolve(ctx, r.remotePath)
	if err != nil {
		return nil, fmt.Errorf("resolving ledger: %w", err)
	}

	f, err := excelize.OpenFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheetName, err)
	}

	var student *models.Student
	for i, row := range rows {
		if i < headerRows {
			continue
		}
		if CanonicalID(cellAt(row, idxID)) != id {
			continue
		}

		fee := r.feeCell(f, i+1)

		months := make(map[string]string, len(models.Months))
		for _, month := range models.Months {
			months[month] = cellAt(row, monthIdx[month])
		}

		student = &models.Student{
			ID:         id,
			Name:       cellAt(row, idxName),
			Grade:      cellAt(row, idxGrade),
			MonthlyFee: fee.Fee(),
			RawFeeCell: fee.Raw,
			Months:     months,
		}
	}
	return student, nil
}

// feeCell reads the fee cell of a row and tags its encoding so Fee() can
// pick the matching normalization rule.
func (r *Resolver) feeCell(f *excelize.File, rowNum int) Cell {
	axis, err := excelize.CoordinatesToCellName(idxFee+1, rowNum)
	if err != nil {
		r.logger.Warn("bad fee cell coordinates", zap.Int("row", rowNum), zap.Error(err))
		return Cell{Kind: CellEmpty}
	}

	raw, err := f.GetCellValue(sheetName, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		r.logger.Warn("reading fee cell", zap.String("cell", axis), zap.Error(err))
		return Cell{Kind: CellEmpty}
	}

	if formula, err := f.GetCellFormula(sheetName, axis); err == nil && formula != "" {
		return Cell{Kind: CellFormula, Raw: raw}
	}
	if strings.TrimSpace(raw) == "" {
		return Cell{Kind: CellEmpty, Raw: raw}
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return Cell{Kind: CellNumber, Raw: raw}
	}
	return Cell{Kind: CellText, Raw: raw}
}

// cellAt guards against short rows: excelize trims trailing empty cells.
func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
