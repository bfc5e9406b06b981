package quiz

import (
	"encoding/json"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Option struct {
	OptionID  string `json:"option_id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type Question struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options" validate:"min=2,max=4,dive"`
}

// Packet is the JSON document the model is asked to return.
type Packet struct {
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

// PacketSchema is the JSON schema quoted in the prompt.
const PacketSchema = `{"type":"object","title":"QuizPacket","required":["questions"],"properties":{"questions":{"type":"array","minItems":1,"items":{"type":"object","title":"QuizQuestion","required":["prompt","options"],"properties":{"prompt":{"type":"string"},"options":{"type":"array","minItems":2,"maxItems":4,"items":{"type":"object","title":"QuizOption","required":["option_id","text","is_correct"],"properties":{"option_id":{"type":"string"},"text":{"type":"string"},"is_correct":{"type":"boolean"}}}}}}}}}`

// CleanJSON strips a markdown code fence and a leading "json" tag.
func CleanJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimLeft(strings.Trim(cleaned, "`\n "), " \t\r\n")
	if strings.HasPrefix(strings.ToLower(cleaned), "json") {
		cleaned = strings.TrimLeft(cleaned[4:], " \t\r\n")
	}
	return cleaned
}

// ParsePacket decodes a model completion. It does not validate.
func ParsePacket(text string) (Packet, error) {
	var p Packet
	if err := json.Unmarshal([]byte(CleanJSON(text)), &p); err != nil {
		return Packet{}, err
	}
	return p, nil
}

// Validate checks the structural bounds of a packet.
func (p Packet) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPacket, err)
	}
	return nil
}

var labels = [4]string{"A", "B", "C", "D"}

const paddingText = "None of the above"

// Normalize keeps at most count questions, each with exactly four options
// labelled A to D and exactly one correct answer.
func Normalize(p Packet, count int) []Question {
	qs := p.Questions
	if count >= 0 && len(qs) > count {
		qs = qs[:count]
	}

	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		opts := append([]Option(nil), q.Options...)
		for i := 0; len(opts) < 4; i++ {
			opts = append(opts, Option{OptionID: fmt.Sprintf("X%d", i+1), Text: paddingText})
		}
		opts = opts[:4]

		fixed := make([]Option, 4)
		correctSeen := false
		for i, o := range opts {
			correct := o.IsCorrect && !correctSeen
			if correct {
				correctSeen = true
			}
			fixed[i] = Option{OptionID: labels[i], Text: o.Text, IsCorrect: correct}
		}
		if !correctSeen {
			fixed[0].IsCorrect = true
		}
		out = append(out, Question{Prompt: strings.TrimSpace(q.Prompt), Options: fixed})
	}
	return out
}
