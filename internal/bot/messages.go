package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/jcvalle/pagosbot/internal/models"
	"github.com/jcvalle/pagosbot/pkg/config"
)

const (
	msgAskID = "📝 *REGISTRO DE ALUMNO*\n\n" +
		"Por favor, ingrese el número de identidad del alumno (13 dígitos):"
	msgBadIDFormat = "❌ Formato incorrecto. El número de identidad debe tener 13 dígitos numéricos.\n\n" +
		"Intente nuevamente o escriba *menú* para volver al menú principal."
	msgUnknownID = "❌ El número de identidad no está registrado en el sistema. " +
		"Verifique e intente nuevamente."
	msgStudentFound = "✅ *Alumno encontrado:* %s\n\nAhora ingrese el PIN de autorización:"
	msgBadPin       = "❌ PIN incorrecto. Verifique e intente nuevamente o escriba *menú* " +
		"para volver al menú principal."
	msgRegistered = "✅ *REGISTRO EXITOSO*\n\n" +
		"El alumno *%s* ha sido vinculado a su número.\n\n" +
		"Ya puede consultar su estado de pagos desde el menú principal."
	msgNoStudents = "❌ No tiene alumnos registrados. " +
		"Seleccione la opción 1️⃣ para registrar un alumno."
	msgNoStudentsToRemove = "❌ No tiene alumnos registrados para eliminar."
	msgInvalidOption      = "❓ Opción no válida. Por favor seleccione una opción del menú."
	msgBadIndex           = "❌ Opción no válida. Por favor seleccione un número de la lista."
	msgStudentMissing     = "❌ No se encontró información del alumno. " +
		"Por favor contacte a administración."
	msgRemoved      = "✅ El alumno *%s* ha sido eliminado de su cuenta correctamente."
	msgRemoveFailed = "❌ Error al eliminar el alumno. Por favor contacte a administración."
	msgLookupFailed = "😔 Lo sentimos, ocurrió un problema consultando la información. " +
		"Por favor intente de nuevo más tarde."
)

func mainMenuMessage(registered int) string {
	var b strings.Builder
	b.WriteString("🏫 *BIENVENIDO AL SISTEMA ESCOLAR*\n\n")
	if registered > 0 {
		fmt.Fprintf(&b, "👨‍👩‍👧‍👦 Tiene %d alumno(s) registrado(s)\n\n", registered)
	}
	b.WriteString("Seleccione una opción:\n\n")
	b.WriteString("1️⃣ *Registrar* nuevo alumno\n")
	b.WriteString("2️⃣ *Consultar* estado de pagos\n")
	b.WriteString("3️⃣ *Información* de la escuela\n")
	b.WriteString("4️⃣ *Contactar* administración\n")
	if registered > 0 {
		b.WriteString("5️⃣ *Eliminar* alumno de mi cuenta\n")
	}
	b.WriteString("\nResponda con el número de la opción deseada.")
	return b.String()
}

func schoolInfoMessage(school config.SchoolInfo) string {
	var b strings.Builder
	b.WriteString("📚 *INFORMACIÓN DE LA ESCUELA*\n\n")
	fmt.Fprintf(&b, "*%s*\n\n", school.Name)
	fmt.Fprintf(&b, "📍 *Dirección:* %s\n", school.Address)
	fmt.Fprintf(&b, "📞 *Teléfono:* %s\n", school.Phone)
	fmt.Fprintf(&b, "📧 *Email:* %s\n", school.Email)
	fmt.Fprintf(&b, "⏰ *Horario:* %s\n", school.Hours)
	fmt.Fprintf(&b, "🌐 *Sitio Web:* %s\n\n", school.Website)
	b.WriteString("Escriba *menú* para volver al menú principal.")
	return b.String()
}

func contactMessage(school config.SchoolInfo) string {
	var b strings.Builder
	b.WriteString("📞 *CONTACTAR ADMINISTRACIÓN*\n\n")
	b.WriteString("Para consultas administrativas puede comunicarse al:\n")
	fmt.Fprintf(&b, "📱 *WhatsApp:* %s\n", school.Phone)
	fmt.Fprintf(&b, "📧 *Email:* %s\n\n", school.Email)
	b.WriteString("⏰ *Horario de atención:*\n")
	fmt.Fprintf(&b, "%s\n\n", school.Hours)
	b.WriteString("Escriba *menú* para volver al menú principal.")
	return b.String()
}

// paymentReport renders a student's per-month status up to the asOf month.
// A fee under 10 lempiras almost always means the fee cell failed to parse,
// so the raw cell is appended for the administration to inspect.
func paymentReport(s *models.Student, d models.DebtSummary, asOf time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *ESTADO DE PAGOS - %s*\n", strings.ToUpper(s.Name))
	fmt.Fprintf(&b, "🏫 Grado: %s\n\n", s.Grade)

	current := int(asOf.Month())
	for i, month := range models.Months {
		if i+1 > current {
			break
		}
		status := "❌ Pendiente"
		if strings.TrimSpace(s.Months[month]) != "" {
			status = "✅ Pagado"
		}
		fmt.Fprintf(&b, "▫️ %s: %s\n", titleCase(month), status)
	}

	fmt.Fprintf(&b, "\n💵 Cuota mensual: L.%.2f", d.MonthlyFee)
	fmt.Fprintf(&b, "\n📅 Meses pendientes: %d", len(d.PendingMonths))
	if d.UpToDate {
		b.WriteString("\n\n✅ *AL DÍA EN PAGOS*")
	} else {
		fmt.Fprintf(&b, "\n\n❌ *DEUDA TOTAL: L.%.2f*\n(Cuota × Meses pendientes)", d.TotalDebt)
	}

	if s.MonthlyFee < 10 {
		fmt.Fprintf(&b, "\n\n[DEBUG] Valor original: %q", s.RawFeeCell)
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
