package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jcvalle/pagosbot/internal/models"
	"github.com/jcvalle/pagosbot/internal/session"
	"github.com/jcvalle/pagosbot/pkg/config"
)

const (
	guardian = "50499990000"
	anaID    = "0801199901234"
	luisID   = "0801199905678"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeSender) Send(_, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
}

func (s *fakeSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *fakeSender) last() string {
	msgs := s.messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type fakeFinder struct {
	students map[string]*models.Student
	err      error
}

func (f *fakeFinder) FindStudent(_ context.Context, id string) (*models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.students[id], nil
}

type fakePins struct {
	pins map[string]string
}

func (p *fakePins) Validate(_ context.Context, studentID, pin string) bool {
	return p.pins[studentID] == pin
}

type fakeRegistry struct {
	mu        sync.Mutex
	relations map[string][]string
	addCalls  int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{relations: make(map[string][]string)}
}

func (r *fakeRegistry) ListStudents(senderID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.relations[senderID]...)
}

func (r *fakeRegistry) AddRelation(senderID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addCalls++
	for _, id := range r.relations[senderID] {
		if id == studentID {
			return nil
		}
	}
	r.relations[senderID] = append(r.relations[senderID], studentID)
	return nil
}

func (r *fakeRegistry) RemoveRelation(senderID, studentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.relations[senderID][:0]
	removed := false
	for _, id := range r.relations[senderID] {
		if id == studentID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	r.relations[senderID] = kept
	return removed
}

func (r *fakeRegistry) Close() error { return nil }

func testStudent(id, name, grade string, fee float64, paid ...string) *models.Student {
	months := make(map[string]string, len(models.Months))
	for _, m := range models.Months {
		months[m] = ""
	}
	for _, m := range paid {
		months[m] = "x"
	}
	return &models.Student{ID: id, Name: name, Grade: grade, MonthlyFee: fee, Months: months}
}

type engineFixture struct {
	engine   *Engine
	sender   *fakeSender
	finder   *fakeFinder
	registry *fakeRegistry
	sessions *session.Store
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	finder := &fakeFinder{students: map[string]*models.Student{
		anaID:  testStudent(anaID, "Ana López", "7mo A", 1200, "enero", "febrero"),
		luisID: testStudent(luisID, "Luis Mejía", "8vo B", 950),
	}}
	pins := &fakePins{pins: map[string]string{anaID: "4321", luisID: "8765"}}
	reg := newFakeRegistry()
	sender := &fakeSender{}
	sessions := session.NewStore(session.DefaultTTL, nil)
	school := config.SchoolInfo{
		Name:    "Instituto Jose Cecilio Del Valle",
		Address: "Colonia Altos De Loarque, al final de la calle",
		Phone:   "+504 2275-8510",
		Email:   "info@centroejemplo.edu.hn",
		Hours:   "Lunes a Viernes: 7:00 AM - 4:00 PM",
		Website: "www.JoseCecilio.edu.hn",
	}

	e := NewEngine(finder, pins, reg, sessions, sender, school, zap.NewNop())
	e.now = func() time.Time { return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC) }
	// Keep scheduled menu re-displays from firing during assertions.
	e.menuDelay = time.Hour

	return &engineFixture{engine: e, sender: sender, finder: finder, registry: reg, sessions: sessions}
}

func (f *engineFixture) handle(text string) {
	f.engine.Handle(context.Background(), guardian, text)
}

func (f *engineFixture) state() session.State {
	return f.sessions.Get(guardian).State
}

func TestQueryWithoutRegisteredStudents(t *testing.T) {
	f := newFixture(t)

	f.handle("2")

	msgs := f.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "No tiene alumnos")
	assert.Contains(t, msgs[1], "BIENVENIDO")
	assert.Equal(t, session.StateMainMenu, f.state())
}

func TestInvalidMenuOptionReshowsMenu(t *testing.T) {
	f := newFixture(t)

	f.handle("9")

	msgs := f.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Opción no válida")
	assert.Contains(t, msgs[1], "BIENVENIDO")
}

func TestSchoolAndContactInfo(t *testing.T) {
	f := newFixture(t)

	f.handle("3")
	assert.Contains(t, f.sender.last(), "Instituto Jose Cecilio Del Valle")
	assert.Equal(t, session.StateMainMenu, f.state())

	f.handle("4")
	assert.Contains(t, f.sender.last(), "CONTACTAR ADMINISTRACIÓN")
	assert.Contains(t, f.sender.last(), "+504 2275-8510")
}

func TestRegistrationRejectsBadIDFormat(t *testing.T) {
	f := newFixture(t)

	f.handle("1")
	assert.Equal(t, session.StateAwaitingID, f.state())

	f.handle("12345")
	assert.Contains(t, f.sender.last(), "Formato incorrecto")
	assert.Equal(t, session.StateAwaitingID, f.state(), "bad format keeps the id prompt")
}

func TestRegistrationRejectsUnknownID(t *testing.T) {
	f := newFixture(t)

	f.handle("1")
	f.handle("9999999999999")

	assert.Contains(t, f.sender.last(), "no está registrado")
	assert.Equal(t, session.StateAwaitingID, f.state())
}

func TestRegistrationFlow(t *testing.T) {
	f := newFixture(t)

	f.handle("1")
	f.handle(anaID)
	assert.Contains(t, f.sender.last(), "Ana López")
	assert.Equal(t, session.StateAwaitingPIN, f.state())

	f.handle("4321")
	assert.Contains(t, f.sender.last(), "REGISTRO EXITOSO")
	assert.Equal(t, []string{anaID}, f.registry.ListStudents(guardian))
	assert.Equal(t, session.StateMainMenu, f.state())

	// Retrying the PIN after success lands on the main menu; the relation
	// is not duplicated.
	f.handle("4321")
	assert.Equal(t, []string{anaID}, f.registry.ListStudents(guardian))
	assert.Equal(t, 1, f.registry.addCalls)
}

func TestRegistrationWrongPinKeepsPrompt(t *testing.T) {
	f := newFixture(t)

	f.handle("1")
	f.handle(anaID)
	f.handle("0000")

	assert.Contains(t, f.sender.last(), "PIN incorrecto")
	assert.Equal(t, session.StateAwaitingPIN, f.state())
	assert.Empty(t, f.registry.ListStudents(guardian))
}

func TestMenuInterceptResetsFromAnyState(t *testing.T) {
	f := newFixture(t)

	f.handle("1")
	f.handle(anaID)
	require.Equal(t, session.StateAwaitingPIN, f.state())

	f.handle("Menú")

	assert.Contains(t, f.sender.last(), "BIENVENIDO")
	assert.Equal(t, session.StateMainMenu, f.state())
}

func TestQuerySingleStudentReportsDebt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.AddRelation(guardian, anaID))

	f.handle("2")

	report := f.sender.last()
	assert.Contains(t, report, "ESTADO DE PAGOS - ANA LÓPEZ")
	assert.Contains(t, report, "Enero: ✅ Pagado")
	assert.Contains(t, report, "Marzo: ❌ Pendiente")
	assert.Contains(t, report, "Cuota mensual: L.1200.00")
	assert.Contains(t, report, "DEUDA TOTAL: L.1200.00")
	assert.Equal(t, session.StateMainMenu, f.state())
}

func TestQueryMultipleStudentsSelection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.AddRelation(guardian, anaID))
	require.NoError(t, f.registry.AddRelation(guardian, luisID))

	f.handle("2")
	list := f.sender.last()
	assert.Contains(t, list, "1. Ana López - 7mo A")
	assert.Contains(t, list, "2. Luis Mejía - 8vo B")
	assert.Equal(t, session.StateSelectingStudent, f.state())

	f.handle("7")
	assert.Contains(t, f.sender.last(), "seleccione un número")
	assert.Equal(t, session.StateSelectingStudent, f.state(), "out-of-range keeps the prompt")

	f.handle("2")
	assert.Contains(t, f.sender.last(), "ESTADO DE PAGOS - LUIS MEJÍA")
	assert.Equal(t, session.StateMainMenu, f.state())
}

func TestRemovalWithoutStudents(t *testing.T) {
	f := newFixture(t)

	f.handle("5")

	msgs := f.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "para eliminar")
	assert.Contains(t, msgs[1], "BIENVENIDO")
}

func TestRemovalFlow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.AddRelation(guardian, anaID))
	require.NoError(t, f.registry.AddRelation(guardian, luisID))

	f.handle("5")
	assert.Equal(t, session.StateRemovingStudent, f.state())

	f.handle("1")
	assert.Contains(t, f.sender.last(), "eliminado de su cuenta")
	assert.Equal(t, []string{luisID}, f.registry.ListStudents(guardian))
	assert.Equal(t, session.StateMainMenu, f.state())
}

func TestLookupFailureApologizesAndRecovers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.AddRelation(guardian, anaID))
	f.finder.err = errors.New("dropbox unreachable")

	f.handle("2")

	msgs := f.sender.messages()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "Lo sentimos")
	assert.Equal(t, session.StateMainMenu, f.state())

	// The next message is handled normally.
	f.finder.err = nil
	f.handle("3")
	assert.Contains(t, f.sender.last(), "INFORMACIÓN DE LA ESCUELA")
}

func TestVanishedStudentReportsMissing(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.AddRelation(guardian, "0801111111111"))

	f.handle("2")

	msgs := f.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "No se encontró información")
	assert.Contains(t, msgs[1], "BIENVENIDO")
	assert.Equal(t, session.StateMainMenu, f.state())
}

func TestMenuReshownAfterReport(t *testing.T) {
	f := newFixture(t)
	f.engine.menuDelay = 10 * time.Millisecond
	require.NoError(t, f.registry.AddRelation(guardian, anaID))

	f.handle("2")

	assert.Eventually(t, func() bool {
		return strings.Contains(f.sender.last(), "BIENVENIDO")
	}, time.Second, 5*time.Millisecond, "menu re-display should fire after the report")
}

func TestNewMessageCancelsPendingMenu(t *testing.T) {
	f := newFixture(t)
	f.engine.menuDelay = 50 * time.Millisecond
	require.NoError(t, f.registry.AddRelation(guardian, anaID))

	f.handle("2") // schedules a menu re-display
	f.handle("3") // cancels it

	time.Sleep(150 * time.Millisecond)

	msgs := f.sender.messages()
	assert.Contains(t, msgs[len(msgs)-1], "INFORMACIÓN DE LA ESCUELA",
		"a stale re-display must not fire after the guardian moved on")
}

func TestBlankMessageIgnored(t *testing.T) {
	f := newFixture(t)

	f.handle("   ")

	assert.Empty(t, f.sender.messages())
}
