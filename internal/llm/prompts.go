package llm

import (
	"strings"

	"github.com/thebtf/braindump/pkg/models"
)

const titlePrompt = `You write titles for personal notes.
Reply with a title of at most 6 words that captures the note.
Do not use quotes or ending punctuation. Reply with the title only.`

const insightsPrompt = `You help people understand their own notes.
Reply with 2 to 4 short bullet points, one per line, each starting with "- ".
Each bullet must add something the note does not already say: a pattern, a next step, a question worth asking or a connection.
Do not restate the note.`

const advicePrompt = `You help people decide what to do next.
Read the text, extract the concrete tasks it contains and pick the one to do first.
Reply with JSON only, in exactly this shape:
{"tasks": ["task one", "task two"], "recommended_task": "task one", "reason": "why this task comes first"}`

// categoryPrompt lists the closed category set.
var categoryPrompt = buildCategoryPrompt()

func buildCategoryPrompt() string {
	names := make([]string, 0, len(models.AllCategories))
	for _, c := range models.AllCategories {
		names = append(names, string(c))
	}

	var sb strings.Builder
	sb.WriteString("You sort personal notes into categories.\n")
	sb.WriteString("Reply with exactly one of: ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(".\nReply with the category name only.")
	return sb.String()
}
