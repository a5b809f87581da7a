package extract

import (
	"fmt"
	"strings"

	"github.com/jmoralo/newsbrief/internal/mail"
)

const promptInstructions = `Eres un analista de noticias de inteligencia artificial.
Extrae las noticias individuales del contenido de newsletter que sigue.

Para cada noticia devuelve un objeto con:
- "headline": titular conciso en el idioma original (maximo 120 caracteres)
- "body": resumen de 2-4 frases con lo esencial de la noticia
- "source": nombre de la newsletter de la que procede

Reglas:
- Ignora promociones, patrocinios, cursos, sorteos y enlaces de gestion.
- No inventes noticias: extrae solo lo que el texto contiene.
- Responde UNICAMENTE con una lista JSON, sin texto adicional ni code fences.
- Si no hay ninguna noticia real, responde [].`

// singlePrompt builds the extraction prompt for one message.
func singlePrompt(source, subject, body string) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Newsletter: %s\nAsunto: %s\n\nContenido:\n%s\n", source, subject, truncate(body, 12000))
	return b.String()
}

// batchPrompt concatenates several messages under explicit delimiters so
// one capability call covers the whole window. The source field in each
// record carries attribution back.
func batchPrompt(msgs []*mail.Message) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\nA continuacion hay varios emails separados por delimitadores. ")
	b.WriteString("Usa el nombre de remitente del delimitador como \"source\" de cada noticia.\n")

	for i, msg := range msgs {
		source := CleanSourceName(msg.Sender)
		fmt.Fprintf(&b, "\n=== EMAIL %d | %s | %s ===\n", i+1, source, msg.Subject)
		b.WriteString(truncate(cleanedBody(msg), 8000))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
