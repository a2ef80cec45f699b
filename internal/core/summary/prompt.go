package summary

import (
	"fmt"
	"strings"
)

// BuildSummaryPrompt は解析済みMarkdownから要約用のプロンプトを構築する。
// システムプロンプトは使わず、単一のユーザーメッセージとして送信する。
func BuildSummaryPrompt(fileName, markdown string, truncated bool) string {
	var b strings.Builder

	b.WriteString("You are given a business document that was converted to Markdown.\n")
	b.WriteString("Write a concise, well-structured summary of it in Markdown.\n\n")
	b.WriteString("Cover, where the document provides them:\n")
	b.WriteString("- the purpose of the document and who it is for\n")
	b.WriteString("- the key facts, figures and dates\n")
	b.WriteString("- decisions, risks and open items\n\n")
	b.WriteString("Do not invent information that is not in the document.\n")
	b.WriteString("Answer in the language the document is written in.\n\n")

	if name := strings.TrimSpace(fileName); name != "" {
		fmt.Fprintf(&b, "File name: %s\n\n", name)
	}
	if truncated {
		b.WriteString("Note: the document was too long and has been truncated.\n\n")
	}

	b.WriteString("<document>\n")
	b.WriteString(strings.TrimSpace(markdown))
	b.WriteString("\n</document>\n")

	return b.String()
}
