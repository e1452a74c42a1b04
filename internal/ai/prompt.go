package ai

import (
	"fmt"
	"strings"
)

// SystemPrompt builds the instruction block for one turn from the
// company's chatbot name and the retrieved snippets.
func SystemPrompt(assistantName string, snippets []string) string {
	var b strings.Builder
	if assistantName == "" {
		assistantName = "the company"
	}
	fmt.Fprintf(&b, "You are a helpful assistant for %s. ", assistantName)
	b.WriteString("Answer using the context below when it is relevant. ")
	b.WriteString("If the context does not contain the answer, say so briefly.\n")

	if len(snippets) > 0 {
		b.WriteString("\nContext:\n")
		for i, s := range snippets {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(s))
		}
	}
	return b.String()
}
