package ai

import (
	"fmt"
	"strings"
)

const editInstructions = "Respond formally and professionally. " +
	"For questions, always state the serial number of each question (e.g. Q1 -, Q2 -). " +
	"For notes, do as told in the prompt but always keep the key points intact and only add or modify where required. " +
	"Do not include greetings or closing statements."

// BuildEditPrompt wraps a record's current content and the user's
// instruction into a single rewrite request.
func BuildEditPrompt(content, instruction string) string {
	return fmt.Sprintf("%s Edit this text based on the prompt:\n\nOriginal Text: \"%s\"\n\nUser Prompt: \"%s\"",
		editInstructions, content, instruction)
}

func BuildGeneratePrompt(prompt string) string {
	return strings.TrimSpace(prompt)
}
