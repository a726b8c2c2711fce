package generate

import (
	"fmt"
	"strings"
	"time"

	"historia-diaria/internal/domain/entity"
)

const (
	personaInstruction = "Eres un historiador experto que proporciona información precisa y verificada sobre hechos históricos. Tus respuestas deben ser en español."
	personaAck         = "Entendido. Como historiador experto, proporcionaré información precisa y verificada sobre hechos históricos en español."
)

// Preamble returns the fixed conversation that sets up the historian persona.
// A fresh slice is returned on every call.
func Preamble() []Turn {
	return []Turn{
		{Role: RoleUser, Text: personaInstruction},
		{Role: RoleModel, Text: personaAck},
	}
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the Spanish lowercase name of m.
func MonthName(m time.Month) string {
	return spanishMonths[m-1]
}

// BuildPrompt returns the instruction asking for one fact that happened on
// the day and month of date, in any earlier year.
func BuildPrompt(date time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Genera un hecho histórico importante que ocurrió un %d de %s en la historia (en cualquier año anterior a %d).\n",
		date.Day(), MonthName(date.Month()), date.Year())
	b.WriteString("IMPORTANTE: Responde SOLO con un objeto JSON válido que siga exactamente esta estructura, ")
	b.WriteString("usando comillas dobles en todas las claves y cadenas, sin bloques de código, comentarios ni texto adicional:\n")
	b.WriteString("{\n")
	b.WriteString(`  "historical_date": "YYYY-MM-DD",` + "\n")
	b.WriteString(`  "title": "Título corto y conciso",` + "\n")
	b.WriteString(`  "description": "Descripción detallada del hecho histórico con datos relevantes y curiosos",` + "\n")
	fmt.Fprintf(&b, `  "category": "Una de las siguientes categorías: %s",`+"\n", strings.Join(entity.Categories, ", "))
	b.WriteString(`  "sources": ["Fuente 1", "URL1", "Fuente 2", "URL2"]` + "\n")
	b.WriteString("}")
	return b.String()
}
