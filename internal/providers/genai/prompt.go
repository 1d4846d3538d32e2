package genai

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		b.WriteString(prompt)
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		writeLine(&b, "Aspect ratio: "+aspect)
	}
	if watermark := strings.TrimSpace(req.WatermarkTag); watermark != "" {
		writeLine(&b, "Watermark tag: "+cases.Title(language.English).String(watermark))
	}
	if locale := normalizeLocale(req.Locale); locale != "" {
		writeLine(&b, "Locale: "+locale)
	}
	if b.Len() == 0 {
		b.WriteString("Create a marketing image")
	}
	return b.String()
}

func buildAnalyzePrompt(req AnalyzeRequest) string {
	var b strings.Builder
	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = "Describe the material shown in this image, including its composition, condition and likely use."
	}
	b.WriteString(question)
	if locale := normalizeLocale(req.Locale); locale != "" {
		writeLine(&b, "Answer in locale: "+locale)
	}
	return b.String()
}

// normalizeLocale canonicalizes a caller-supplied locale tag; garbage tags are
// passed through trimmed rather than rejected.
func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	return tag.String()
}

func writeLine(b *strings.Builder, line string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(line)
}
