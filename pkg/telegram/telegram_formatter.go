package telegram

import (
	"fmt"
	"strings"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/dto"
)

const maxMessageLen = 4090

// FormatRunSummary formats a pipeline run as Markdown messages for Telegram, splitting the
// failure list so no message exceeds the Telegram length limit.
func FormatRunSummary(report dto.RunReport, status entity.RunStatus, errMessage string) []string {
	var head strings.Builder

	statusIcon := "✅"
	switch status {
	case entity.RunStatusFailed:
		statusIcon = "❌"
	case entity.RunStatusRunning:
		statusIcon = "⏳"
	}
	head.WriteString(fmt.Sprintf("%s *COVID Policy Sentiment Run* (%s)\n\n", statusIcon, escapeMarkdown(report.Trigger)))
	head.WriteString(fmt.Sprintf("🆔 `%s`\n", report.RunID))
	head.WriteString(fmt.Sprintf("🌐 *Crawled:* %d / %d links\n", report.Crawl.Crawled, report.Crawl.Requested))
	head.WriteString(fmt.Sprintf("📰 *Articles:* %d\n", report.Articles))
	head.WriteString(fmt.Sprintf("😊 *Scored:* %d  ⏭ *Skipped:* %d  ⚠️ *Failed:* %d\n",
		report.Sentiment.Scored, report.Sentiment.Skipped, report.Sentiment.Failed))
	if report.Sentiment.Cancelled {
		head.WriteString("🛑 Scoring was cancelled before every article was scored\n")
	}
	if report.OutputPath != "" {
		head.WriteString(fmt.Sprintf("💾 *Output:* `%s`\n", report.OutputPath))
	}
	if errMessage != "" {
		head.WriteString(fmt.Sprintf("\n*Error:* %s\n", escapeMarkdown(errMessage)))
	}

	var lines []string
	for _, link := range report.Crawl.FailedLinks {
		lines = append(lines, fmt.Sprintf("• crawl %s", escapeMarkdown(link)))
	}
	for _, f := range report.Sentiment.Failures {
		lines = append(lines, fmt.Sprintf("• score %s: %s", escapeMarkdown(f.Key), escapeMarkdown(f.Error)))
	}
	if len(lines) == 0 {
		return []string{head.String()}
	}

	var (
		messages []string
		current  strings.Builder
		part     = 1
	)
	current.WriteString(head.String())
	current.WriteString("\n*Failures:*\n")
	for _, line := range lines {
		if current.Len()+len(line)+1 > maxMessageLen {
			messages = append(messages, current.String())
			part++
			current.Reset()
			current.WriteString(fmt.Sprintf("---*Failures part %d*---\n", part))
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	messages = append(messages, current.String())
	return messages
}

var markdownReplacer = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}
