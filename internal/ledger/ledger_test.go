package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jcvalle/pagosbot/internal/models"
)

// stubCache serves a fixed local file instead of hitting a remote store.
type stubCache struct {
	path string
	err  error
}

func (c *stubCache) Resolve(_ context.Context, _ string) (string, error) {
	return c.path, c.err
}

type ledgerRow struct {
	name  string
	grade string
	id    interface{}
	fee   interface{}
	paid  []string
}

func writeLedger(t *testing.T, rows []ledgerRow) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheetName))
	require.NoError(t, f.SetCellValue(sheetName, "A1", "MATRÍCULA 2026"))
	require.NoError(t, f.SetCellValue(sheetName, "A2", "NOMBRE"))

	letterFor := make(map[string]string, len(models.Months))
	for i, month := range models.Months {
		letterFor[month] = monthColumnLetters[i]
	}

	for i, row := range rows {
		n := i + headerRows + 1
		set := func(col string, v interface{}) {
			require.NoError(t, f.SetCellValue(sheetName, fmt.Sprintf("%s%d", col, n), v))
		}
		set(colName, row.name)
		set(colGrade, row.grade)
		set(colID, row.id)
		if row.fee != nil {
			set(colFee, row.fee)
		}
		for _, month := range row.paid {
			set(letterFor[month], "x")
		}
	}

	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func newTestResolver(t *testing.T, rows []ledgerRow) *Resolver {
	t.Helper()
	path := writeLedger(t, rows)
	return NewResolver(&stubCache{path: path}, "/datos_estudiantes.xlsx", zap.NewNop())
}

func TestFindStudentTextID(t *testing.T) {
	r := newTestResolver(t, []ledgerRow{
		{name: "Ana López", grade: "7mo A", id: "0801199901234", fee: "L.1,200.00", paid: []string{"enero", "febrero"}},
	})

	s, err := r.FindStudent(context.Background(), "0801199901234")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "0801199901234", s.ID)
	assert.Equal(t, "Ana López", s.Name)
	assert.Equal(t, "7mo A", s.Grade)
	assert.Equal(t, 1200.0, s.MonthlyFee)
	assert.NotEmpty(t, s.Months["enero"])
	assert.NotEmpty(t, s.Months["febrero"])
	assert.Empty(t, s.Months["marzo"])
}

func TestFindStudentNumericIDCell(t *testing.T) {
	r := newTestResolver(t, []ledgerRow{
		{name: "Luis Mejía", grade: "8vo B", id: int64(6110000000000), fee: 950},
	})

	s, err := r.FindStudent(context.Background(), "6110000000000")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "6110000000000", s.ID)
	assert.Equal(t, 950.0, s.MonthlyFee)
}

func TestFindStudentNotFound(t *testing.T) {
	r := newTestResolver(t, []ledgerRow{
		{name: "Ana López", grade: "7mo A", id: "0801199901234", fee: 1200},
	})

	s, err := r.FindStudent(context.Background(), "9999999999999")
	require.NoError(t, err)
	assert.Nil(t, s, "not-found is a nil record, not an error")
}

func TestFindStudentLastDuplicateWins(t *testing.T) {
	r := newTestResolver(t, []ledgerRow{
		{name: "Ana López", grade: "7mo A", id: "0801199901234", fee: 1200},
		{name: "Ana López", grade: "8vo A", id: "0801199901234", fee: 1300},
	})

	s, err := r.FindStudent(context.Background(), "0801199901234")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "8vo A", s.Grade)
	assert.Equal(t, 1300.0, s.MonthlyFee)
}

func TestFindStudentUnparseableFeeKeepsRawCell(t *testing.T) {
	r := newTestResolver(t, []ledgerRow{
		{name: "Ana López", grade: "7mo A", id: "0801199901234", fee: "beca completa"},
	})

	s, err := r.FindStudent(context.Background(), "0801199901234")
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, 0.0, s.MonthlyFee)
	assert.Equal(t, "beca completa", s.RawFeeCell)
}

func TestFindStudentSkipsHeaderRows(t *testing.T) {
	// A header cell that happens to look like an id must not match.
	path := writeLedger(t, nil)
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(sheetName, colID+"1", "0801199901234"))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	r := NewResolver(&stubCache{path: path}, "/datos_estudiantes.xlsx", zap.NewNop())
	s, err := r.FindStudent(context.Background(), "0801199901234")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFindStudentPropagatesFetchError(t *testing.T) {
	r := NewResolver(&stubCache{err: errors.New("dropbox unreachable")}, "/datos_estudiantes.xlsx", zap.NewNop())

	_, err := r.FindStudent(context.Background(), "0801199901234")
	assert.Error(t, err)
}
