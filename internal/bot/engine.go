package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jcvalle/pagosbot/internal/ledger"
	"github.com/jcvalle/pagosbot/internal/models"
	"github.com/jcvalle/pagosbot/internal/registry"
	"github.com/jcvalle/pagosbot/internal/session"
	"github.com/jcvalle/pagosbot/pkg/config"
)

// StudentFinder looks a student up in the tuition ledger. A nil record with
// a nil error means not found.
type StudentFinder interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
}

// PinValidator checks a student's authorization PIN.
type PinValidator interface {
	Validate(ctx context.Context, studentID, pin string) bool
}

// Sender delivers outbound text to a guardian. Delivery failures are the
// transport's concern, not the engine's.
type Sender interface {
	Send(senderID, text string)
}

var idPattern = regexp.MustCompile(`^\d{13}$`)

// defaultMenuDelay is the pause before the menu is re-shown after a report,
// so the report stays on screen long enough to read.
const defaultMenuDelay = 1500 * time.Millisecond

// Engine drives the per-guardian conversation. Each inbound message is
// dispatched on the sender's current session state; every failure path ends
// in a user-visible reply and a recoverable state.
type Engine struct {
	finder   StudentFinder
	pins     PinValidator
	registry registry.Registry
	sessions *session.Store
	sender   Sender
	school   config.SchoolInfo
	logger   *zap.Logger

	now       func() time.Time
	menuDelay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewEngine(
	finder StudentFinder,
	pins PinValidator,
	reg registry.Registry,
	sessions *session.Store,
	sender Sender,
	school config.SchoolInfo,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		finder:    finder,
		pins:      pins,
		registry:  reg,
		sessions:  sessions,
		sender:    sender,
		school:    school,
		logger:    logger,
		now:       time.Now,
		menuDelay: defaultMenuDelay,
		pending:   make(map[string]*time.Timer),
	}
}

// Handle processes one inbound message. "menu"/"menú" resets the
// conversation from any state before per-state parsing runs.
func (e *Engine) Handle(ctx context.Context, senderID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	// A new message supersedes any scheduled menu re-display.
	e.cancelPendingMenu(senderID)

	lower := strings.ToLower(text)
	if lower == "menu" || lower == "menú" {
		e.sendMainMenu(senderID)
		return
	}

	sess := e.sessions.Get(senderID)

	switch sess.State {
	case session.StateMainMenu:
		e.handleMainMenu(ctx, senderID, text)
	case session.StateAwaitingID:
		e.handleAwaitingID(ctx, senderID, text)
	case session.StateAwaitingPIN:
		e.handleAwaitingPIN(ctx, senderID, text, sess.Data)
	case session.StateSelectingStudent:
		e.handleSelection(ctx, senderID, text, sess.Data)
	case session.StateRemovingStudent:
		e.handleRemoval(ctx, senderID, text, sess.Data)
	default:
		e.sendMainMenu(senderID)
	}
}

func (e *Engine) handleMainMenu(ctx context.Context, senderID, text string) {
	students := e.registry.ListStudents(senderID)

	switch text {
	case "1":
		e.sessions.Set(senderID, session.StateAwaitingID, session.Data{})
		e.sender.Send(senderID, msgAskID)
	case "2":
		e.startQuery(ctx, senderID, students)
	case "3":
		e.sender.Send(senderID, schoolInfoMessage(e.school))
	case "4":
		e.sender.Send(senderID, contactMessage(e.school))
	case "5":
		e.startRemoval(ctx, senderID, students)
	default:
		e.sender.Send(senderID, msgInvalidOption)
		e.sendMainMenu(senderID)
	}
}

func (e *Engine) startQuery(ctx context.Context, senderID string, students []string) {
	switch len(students) {
	case 0:
		e.sender.Send(senderID, msgNoStudents)
		e.sendMainMenu(senderID)
	case 1:
		e.reportPayments(ctx, senderID, students[0])
	default:
		list, err := e.candidateList(ctx, "👨‍👩‍👧‍👦 *SELECCIONE ALUMNO*", students,
			"\nResponda con el número del alumno para ver su estado de pagos.")
		if err != nil {
			e.apologize(senderID, err)
			return
		}
		e.sessions.Set(senderID, session.StateSelectingStudent, session.Data{Candidates: students})
		e.sender.Send(senderID, list)
	}
}

func (e *Engine) startRemoval(ctx context.Context, senderID string, students []string) {
	if len(students) == 0 {
		e.sender.Send(senderID, msgNoStudentsToRemove)
		e.sendMainMenu(senderID)
		return
	}

	list, err := e.candidateList(ctx, "🗑️ *ELIMINAR ALUMNO*", students,
		"\nResponda con el número del alumno que desea eliminar de su cuenta.")
	if err != nil {
		e.apologize(senderID, err)
		return
	}
	e.sessions.Set(senderID, session.StateRemovingStudent, session.Data{Candidates: students})
	e.sender.Send(senderID, list)
}

func (e *Engine) handleAwaitingID(ctx context.Context, senderID, text string) {
	if !idPattern.MatchString(text) {
		e.sender.Send(senderID, msgBadIDFormat)
		return
	}

	student, err := e.finder.FindStudent(ctx, text)
	if err != nil {
		e.apologize(senderID, err)
		return
	}
	if student == nil {
		e.sender.Send(senderID, msgUnknownID)
		return
	}

	e.sessions.Set(senderID, session.StateAwaitingPIN, session.Data{StudentID: text})
	e.sender.Send(senderID, fmt.Sprintf(msgStudentFound, student.Name))
}

func (e *Engine) handleAwaitingPIN(ctx context.Context, senderID, text string, data session.Data) {
	if !e.pins.Validate(ctx, data.StudentID, text) {
		e.sender.Send(senderID, msgBadPin)
		return
	}

	if err := e.registry.AddRelation(senderID, data.StudentID); err != nil {
		e.apologize(senderID, err)
		return
	}

	name := data.StudentID
	if student, err := e.finder.FindStudent(ctx, data.StudentID); err == nil && student != nil {
		name = student.Name
	}

	e.sessions.Set(senderID, session.StateMainMenu, session.Data{})
	e.sender.Send(senderID, fmt.Sprintf(msgRegistered, name))
	e.scheduleMenu(senderID)
}

func (e *Engine) handleSelection(ctx context.Context, senderID, text string, data session.Data) {
	idx, ok := parseIndex(text, len(data.Candidates))
	if !ok {
		e.sender.Send(senderID, msgBadIndex)
		return
	}

	e.sessions.Set(senderID, session.StateMainMenu, session.Data{})
	e.reportPayments(ctx, senderID, data.Candidates[idx])
}

func (e *Engine) handleRemoval(ctx context.Context, senderID, text string, data session.Data) {
	idx, ok := parseIndex(text, len(data.Candidates))
	if !ok {
		e.sender.Send(senderID, msgBadIndex)
		return
	}
	studentID := data.Candidates[idx]

	name := studentID
	if student, err := e.finder.FindStudent(ctx, studentID); err == nil && student != nil {
		name = student.Name
	}

	e.sessions.Set(senderID, session.StateMainMenu, session.Data{})
	if e.registry.RemoveRelation(senderID, studentID) {
		e.sender.Send(senderID, fmt.Sprintf(msgRemoved, name))
	} else {
		e.sender.Send(senderID, msgRemoveFailed)
	}
	e.scheduleMenu(senderID)
}

// reportPayments resolves a student and sends the payment status, then
// schedules the menu re-display.
func (e *Engine) reportPayments(ctx context.Context, senderID, studentID string) {
	student, err := e.finder.FindStudent(ctx, studentID)
	if err != nil {
		e.apologize(senderID, err)
		return
	}
	if student == nil {
		e.sender.Send(senderID, msgStudentMissing)
		e.sendMainMenu(senderID)
		return
	}

	asOf := e.now()
	summary := ledger.ComputeDebt(student, asOf)
	e.sessions.Set(senderID, session.StateMainMenu, session.Data{})
	e.sender.Send(senderID, paymentReport(student, summary, asOf))
	e.scheduleMenu(senderID)
}

// candidateList numbers the guardian's students for index selection. Ids
// that no longer resolve are skipped from the display but stay in the stored
// candidate list, so the reply index always addresses the full list.
func (e *Engine) candidateList(ctx context.Context, header string, students []string, footer string) (string, error) {
	var b strings.Builder
	b.WriteString(header + "\n\n")

	n := 1
	for _, id := range students {
		student, err := e.finder.FindStudent(ctx, id)
		if err != nil {
			return "", err
		}
		if student == nil {
			continue
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", n, student.Name, student.Grade)
		n++
	}

	b.WriteString(footer)
	return b.String(), nil
}

func (e *Engine) sendMainMenu(senderID string) {
	students := e.registry.ListStudents(senderID)
	e.sessions.Set(senderID, session.StateMainMenu, session.Data{})
	e.sender.Send(senderID, mainMenuMessage(len(students)))
}

// apologize converts an internal failure into a generic user-facing message
// and drops the guardian back on the main menu; the session never sticks in
// an unrecoverable state.
func (e *Engine) apologize(senderID string, err error) {
	e.logger.Error("lookup failed",
		zap.String("sender", senderID),
		zap.Error(err))
	e.sender.Send(senderID, msgLookupFailed)
	e.sendMainMenu(senderID)
}

// scheduleMenu re-displays the menu after a short pause. The timer is
// per-sender and cancellable: a newer inbound message (see Handle) stops a
// stale re-display from firing after the guardian has moved on.
func (e *Engine) scheduleMenu(senderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.pending[senderID]; ok {
		t.Stop()
	}
	e.pending[senderID] = time.AfterFunc(e.menuDelay, func() {
		e.mu.Lock()
		delete(e.pending, senderID)
		e.mu.Unlock()
		e.sendMainMenu(senderID)
	})
}

func (e *Engine) cancelPendingMenu(senderID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.pending[senderID]; ok {
		t.Stop()
		delete(e.pending, senderID)
	}
}

func parseIndex(text string, size int) (int, bool) {
	idx, err := strconv.Atoi(text)
	if err != nil || idx < 1 || idx > size {
		return 0, false
	}
	return idx - 1, true
}
