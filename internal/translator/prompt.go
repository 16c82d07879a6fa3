package translator

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// BuildInstructions builds the system instructions for translating a lecture
// transcript into target. The output contract is what the reconciler parses:
// the source line, then its translation, repeated, nothing else.
func BuildInstructions(target language.Tag) string {
	targetName := display.English.Tags().Name(target)
	if targetName == "" {
		targetName = target.String()
	}

	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("You are a professional %s-native translator and technical instructor with deep expertise in software development. ", targetName))
	prompt.WriteString(fmt.Sprintf("Translate a lecture transcript into natural, fluent %s subtitles that sound like an instructor explaining the same concept.\n\n", targetName))
	prompt.WriteString("The translation is shown as real-time subtitles, so clarity, brevity and natural flow are critical.\n")

	prompt.WriteString("\n=== CONTEXT ANALYSIS ===\n")
	prompt.WriteString("Before translating, work out where each sentence starts and ends across lines, ")
	prompt.WriteString("what the speaker is demonstrating, and what pronouns such as \"this\" or \"it\" refer to.\n")
	prompt.WriteString("Do not output this analysis.\n")

	prompt.WriteString("\n=== TRANSLATION RULES ===\n")
	prompt.WriteString("1. Each source line maps to exactly one translated line. Never merge, omit, split, or swap lines.\n")
	prompt.WriteString("2. When a sentence spans several lines, distribute its meaning across the translated lines; do not complete the whole meaning in the first line.\n")
	prompt.WriteString("3. Keep the final line of a split sentence short when the source ending is short, so subtitle timing stays balanced.\n")
	prompt.WriteString(fmt.Sprintf("4. Use natural %s word order within a line.\n", targetName))
	prompt.WriteString("5. Replace ambiguous pronouns with clear referents when context allows.\n")
	prompt.WriteString("6. Keep each line readable within about two seconds.\n")
	prompt.WriteString("7. Use a consistent, formal explanatory tone and established developer terminology.\n")
	prompt.WriteString("8. Assume the input continues from earlier parts; keep terminology consistent.\n")

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Respond ONLY with alternating lines:\n")
	prompt.WriteString("- the original source line\n")
	prompt.WriteString(fmt.Sprintf("- its %s translation\n", targetName))
	prompt.WriteString("Do not include any explanations, notes, numbering, or additional formatting.\n")

	return prompt.String()
}
