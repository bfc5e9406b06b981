package summarize

import "strings"

type Mode string

const (
	ModeShort       Mode = "short"
	ModeLong        Mode = "long"
	ModeKeyConcepts Mode = "key_concepts"
)

// Modes lists every summary mode in output order.
var Modes = []Mode{ModeShort, ModeLong, ModeKeyConcepts}

// ModeSpec holds the fixed prompts and reduce-input ceiling of a mode.
type ModeSpec struct {
	MapInstruction    string
	ReduceInstruction string
	ReduceSuffix      string
	TokenCeiling      int
}

var modeSpecs = map[Mode]ModeSpec{
	ModeShort: {
		MapInstruction: "You are a precise summarizer.\n" +
			"Write a concise, factual **Markdown** paragraph summarizing the following content for a busy student.\n" +
			"Avoid fluff, no headings.",
		ReduceInstruction: "You will consolidate multiple short summaries into **ONE** crisp **Markdown** paragraph (5-7 sentences max).\n" +
			"Keep it factual and non-repetitive. No bullet points, no headings. Format the 3 most important key terms in bold.",
		ReduceSuffix: "Final short summary:",
		TokenCeiling: 3200,
	},
	ModeLong: {
		MapInstruction: "You are a thorough summarizer.\n" +
			"Summarize the following content as clear **Markdown** paragraphs with good coverage.\n" +
			"Prefer clarity over brevity. Use headings and breaks between sections when necessary.",
		ReduceInstruction: "Synthesize the multiple detailed summaries into one comprehensive **Markdown** summary of **about 250-400 words** (2-5 paragraphs).\n" +
			"Be cohesive, remove repetition, and avoid tables unless necessary.",
		ReduceSuffix: "Final long summary (250-400 words):",
		TokenCeiling: 6000,
	},
	ModeKeyConcepts: {
		MapInstruction: "Extract key concepts/terms from the content **with a one-sentence definition each**.\n" +
			"Return a **Markdown bullet list** only, one item per line in the format:\n" +
			"- **Term**: short definition\n" +
			"Aim for **8-15** items. No headings, no extra text.",
		ReduceInstruction: "You are merging multiple concept lists. **Deduplicate** near-duplicates (normalize casing and singular/plural),\n" +
			"pick the clearest name, and keep **one sentence** per definition.\n" +
			"Return **only** a compact **Markdown** bullet list (limit to **6-10** items) in the format:\n" +
			"- **Term**: short definition",
		ReduceSuffix: "Final merged list (6-10 items):",
		TokenCeiling: 3200,
	},
}

func (m Mode) Spec() ModeSpec {
	return modeSpecs[m]
}

func (m Mode) Valid() bool {
	_, ok := modeSpecs[m]
	return ok
}

// MapPrompt asks for a summary of one piece of source content.
func (s ModeSpec) MapPrompt(content string) string {
	var b strings.Builder
	b.WriteString(s.MapInstruction)
	b.WriteString("\n\n")
	b.WriteString(content)
	return b.String()
}

// ReducePrompt asks to merge already-produced summaries.
func (s ModeSpec) ReducePrompt(docs string) string {
	var b strings.Builder
	b.WriteString(s.ReduceInstruction)
	b.WriteString("\n\n")
	b.WriteString(docs)
	b.WriteString("\n\n")
	b.WriteString(s.ReduceSuffix)
	return b.String()
}
