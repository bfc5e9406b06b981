package chat

import (
	"fmt"
	"strings"

	"studyrag-be/pkg/rag"
)

// EmptyContextMessage answers a turn whose retrieval found nothing.
const EmptyContextMessage = "No matching documents in your knowledge base were found for your query. " +
	"Try rephrasing, broadening your search or check that you have uploaded the relevant documents."

// DefaultTemplate is used when no template file is configured.
const DefaultTemplate = "You are a helpful study assistant.\n\n" +
	"USER PREFERENCES:\n{{PREFS_BLOCK}}\n\n" +
	"CONVERSATION SO FAR:\n{{HISTORY}}\n\n" +
	"QUESTION:\n{{QUESTION}}\n\n" +
	"CONTEXT SNIPPETS:\n{{CONTEXT_BLOCK}}\n\n" +
	"INSTRUCTIONS:\n" +
	"- Use conversation history for continuity.\n" +
	"- Use retrieved context and cite filenames when helpful.\n" +
	"- Be concise but complete.\n" +
	"- If context is insufficient, say what's missing.\n"

// Preferences shape the tone and depth of answers.
type Preferences struct {
	EducationLevel    string   `json:"education_level"`
	LearningStyle     string   `json:"learning_style"`
	ExplanationFormat string   `json:"explanation_format"`
	StudyGoals        []string `json:"study_goals"`
	Tone              string   `json:"tone"`
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// PreferencesBlock renders preferences as a bullet list.
func PreferencesBlock(p Preferences) string {
	goals := make([]string, 0, len(p.StudyGoals))
	for _, g := range p.StudyGoals {
		if g = strings.TrimSpace(g); g != "" {
			goals = append(goals, g)
		}
	}
	return strings.Join([]string{
		"- Education level: " + orDefault(p.EducationLevel, "unspecified"),
		"- Learning style: " + orDefault(p.LearningStyle, "unspecified"),
		"- Explanation format: " + orDefault(p.ExplanationFormat, "unspecified"),
		"- Study goals: " + orDefault(strings.Join(goals, ", "), "unspecified"),
		"- Tone: " + orDefault(p.Tone, "neutral"),
	}, "\n")
}

// HistoryBlock renders the last maxTurns turns before the current one.
func HistoryBlock(turns []Turn, maxTurns int) string {
	if len(turns) == 0 {
		return ""
	}
	prior := turns[:len(turns)-1]
	if maxTurns >= 0 && len(prior) > maxTurns {
		prior = prior[len(prior)-maxTurns:]
	}
	lines := make([]string, 0, len(prior))
	for _, t := range prior {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		lines = append(lines, t.Role.label()+": "+content)
	}
	return strings.Join(lines, "\n")
}

// ContextBlock numbers snippets from 1 and tags each with its file name.
func ContextBlock(frags []rag.Fragment, topK int) string {
	if topK > 0 && len(frags) > topK {
		frags = frags[:topK]
	}
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = fmt.Sprintf("[%d] (doc=%s)\n%s", i+1, f.FileName(), f.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the template placeholders.
func BuildPrompt(template, prefsBlock, history, question, contextBlock string) string {
	return strings.NewReplacer(
		"{{PREFS_BLOCK}}", prefsBlock,
		"{{HISTORY}}", history,
		"{{QUESTION}}", question,
		"{{CONTEXT_BLOCK}}", contextBlock,
	).Replace(template)
}
