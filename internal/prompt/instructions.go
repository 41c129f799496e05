// Package prompt builds the instructions sent to text-transform providers
// and tidies what they send back.
package prompt

import (
	"regexp"
	"strings"
)

// DefaultLanguage is the language that needs no translation.
const DefaultLanguage = "en"

// System is the voiceover-writer instruction shared by every text provider.
const System = `You are an expert voiceover script writer. Your task is to transform
raw spoken transcripts into polished, professional voiceover scripts.

YOUR GOAL: Clean up what the user SAID into natural, professional voiceover text.

CRITICAL OUTPUT RULES:
- Output ONLY the cleaned script text, nothing else
- Do NOT start with "Here's", "Sure", "Certainly", or any introduction
- Do NOT add any preamble like "Here is the polished script:"
- Do NOT add any closing remarks like "Let me know if you need changes"
- Just output the script directly, as if you ARE the voiceover narrator

CONTENT RULES:
1. Remove filler words (uh, um, so, like, you know, basically, actually, etc.)
2. Fix grammatical errors and awkward phrasing
3. Keep the SAME meaning and message as the original transcript
4. Make it sound natural when read aloud by AI text-to-speech
5. Maintain a friendly, professional tone
6. Keep it concise - don't over-expand or add new information
7. Do NOT add technical instructions or step-by-step guides
8. Do NOT mention DOM elements, CSS selectors, or HTML tags
9. Do NOT generate "click here" or "navigate to" instructions
10. Simply polish what the user said into professional voiceover text

IMPORTANT: The user's spoken words are your ONLY source of content.

OUTPUT FORMAT:
- Natural, flowing voiceover text
- No markdown, bullet points, or numbered steps
- Should sound like a professional narrator speaking
- START DIRECTLY with the script content`

const (
	cleanTemplate     = "Please clean and rewrite the following spoken transcript into professional voiceover text:\n\n{{transcript}}"
	translateTemplate = "Please clean the following spoken transcript AND translate it to {{language}}. Output ONLY the translated, professional voiceover text:\n\n{{transcript}}"
)

// NormalizeLanguage trims and lower-cases a language code; empty means English.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return DefaultLanguage
	}
	return code
}

// NeedsTranslation reports whether output must be produced in another language.
func NeedsTranslation(language string) bool {
	return NormalizeLanguage(language) != DefaultLanguage
}

// User builds the per-request instruction. Cleaning and translation happen
// in a single pass when language is not English.
func User(transcript, language string) string {
	language = NormalizeLanguage(language)
	tmpl := cleanTemplate
	if language != DefaultLanguage {
		tmpl = translateTemplate
	}
	// Both templates only reference the two variables supplied here.
	out, _ := Render(tmpl, map[string]string{
		"transcript": transcript,
		"language":   language,
	})
	return out
}

var preambles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is) (?:the |a |your )?(?:(?:polished|rewritten|cleaned|clean|revised|updated|final|translated|improved|professional)(?:,\s*|\s+))*(?:version of the |version of )?(?:voiceover\s+)?(?:script|text|voiceover|transcript|content|version)\s*:\s*`),
	regexp.MustCompile(`(?i)^(?:the )?(?:polished|rewritten|cleaned|revised|updated|final|translated|improved)\s+(?:script|text|voiceover|transcript)(?:\s+is)?\s*:\s*`),
	regexp.MustCompile(`(?i)^(?:sure|certainly|of course)[!,.]\s*(?:here(?:'s| is)[^:\n]*:)?\s*`),
}

// StripPreamble removes lead-ins such as "Here's the polished script:" and
// surrounding quotes that models add despite the instructions.
func StripPreamble(text string) string {
	cleaned := strings.TrimSpace(text)
	for _, re := range preambles {
		cleaned = strings.TrimSpace(re.ReplaceAllString(cleaned, ""))
	}
	for _, q := range []string{`"`, `'`, "“"} {
		closing := q
		if q == "“" {
			closing = "”"
		}
		if len(cleaned) >= 2*len(q) && strings.HasPrefix(cleaned, q) && strings.HasSuffix(cleaned, closing) {
			cleaned = strings.TrimSpace(cleaned[len(q) : len(cleaned)-len(closing)])
			break
		}
	}
	return cleaned
}
