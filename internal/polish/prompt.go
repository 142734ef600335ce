package polish

import (
	"fmt"
	"strings"
)

// buildSystemPrompt generates the cleanup instruction for the model.
func buildSystemPrompt(keywords []string) string {
	prompt := "You are a text cleanup assistant. Your job is to clean up speech-to-text transcriptions.\n\n"
	prompt += "Tasks:\n"
	prompt += "- Remove stutters and repeated words/phrases\n"
	prompt += "- Add proper punctuation\n"
	prompt += "- Remove filler words (um, uh, like, you know, etc.)\n"

	prompt += "\nRules:\n"
	prompt += "- Preserve the original meaning and intent\n"
	prompt += "- Keep the same language as the input\n"
	prompt += "- Do not add any new information\n"
	prompt += "- Do not remove meaningful content\n"
	prompt += "- Output ONLY the cleaned text, nothing else\n"
	prompt += "- If the input is empty or nonsensical, return it as-is\n"

	if len(keywords) > 0 {
		prompt += fmt.Sprintf("\nContext keywords (use correct spelling for these terms): %s\n", strings.Join(keywords, ", "))
	}

	return prompt
}
