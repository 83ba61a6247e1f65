package question

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the generation instruction for a normalized request.
func BuildPrompt(req Request) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Generate %d multiple-choice quiz questions about %q at %s difficulty level.\n\n",
		req.Count, req.Topic, req.Difficulty))
	builder.WriteString("Format your response as a JSON array where each question has this exact structure:\n")
	builder.WriteString("{\n")
	builder.WriteString("  \"question\": \"The question text\",\n")
	builder.WriteString("  \"options\": [\"Option A\", \"Option B\", \"Option C\", \"Option D\"],\n")
	builder.WriteString("  \"correctAnswer\": 0 (index of correct option, 0-3)\n")
	builder.WriteString("}\n\n")
	builder.WriteString("Make sure:\n")
	builder.WriteString(fmt.Sprintf("- There are exactly %d questions\n", req.Count))
	builder.WriteString("- Questions are clear and well-formulated\n")
	builder.WriteString("- Every question has exactly 4 plausible options\n")
	builder.WriteString("- Only one option is correct\n")
	builder.WriteString("- Questions vary in style and content\n")
	builder.WriteString(fmt.Sprintf("- Difficulty matches the %q level\n\n", req.Difficulty))
	builder.WriteString("Return ONLY the JSON array, no additional text or markdown formatting.")
	return builder.String()
}
