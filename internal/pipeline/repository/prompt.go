package repository

import (
	"fmt"
	"strings"
)

// BuildSentencePolarityPrompt asks the model for one polarity value per numbered sentence.
func BuildSentencePolarityPrompt(sentences []string) string {
	var b strings.Builder
	for i, s := range sentences {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.ReplaceAll(s, "\n", " ")))
	}

	return fmt.Sprintf(`You are a sentiment analyst reading news coverage of COVID-19 public health policy.
Score the sentiment polarity of each numbered sentence below on a scale from -1.0 (very negative)
to 1.0 (very positive), where 0.0 is neutral.

Sentences:
%s
Respond with JSON only, in this format, with exactly %d numbers in sentence order:

{"polarities": [0.0, ...]}`, b.String(), len(sentences))
}
