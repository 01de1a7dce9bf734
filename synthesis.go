package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// SynthesisPolicy is the branch the synthesis stage takes.
type SynthesisPolicy string

const (
	PolicyStructured  SynthesisPolicy = "structured"
	PolicyImage       SynthesisPolicy = "image_summary"
	PolicyEditorial   SynthesisPolicy = "editorial"
	PolicyAcknowledge SynthesisPolicy = "acknowledge"
)

const thinkingCloseTag = "</thinking>"

// observationBlock is how a tool result is recorded in the transcript.
func observationBlock(tool, result string) string {
	return fmt.Sprintf("\n[Observation from %s: Received structured data]\n%s\n", tool, result)
}

// StructuredObservation reports whether a captured tool result is a JSON
// object or array, and returns it trimmed.
func StructuredObservation(observation string) (string, bool) {
	data := strings.TrimSpace(observation)
	if data == "" || (data[0] != '{' && data[0] != '[') {
		return "", false
	}
	if !json.Valid([]byte(data)) {
		return "", false
	}
	return data, true
}

// rawAnswer is the text after the last closing thinking tag, or the
// whole transcript when nothing follows it.
func rawAnswer(transcript string) string {
	parts := strings.Split(transcript, thinkingCloseTag)
	if tail := strings.TrimSpace(parts[len(parts)-1]); tail != "" {
		return tail
	}
	return transcript
}

// SelectSynthesis picks the synthesis branch and builds its prompt. The
// structured branch only looks at observation, the result of the tool
// call, never at text the model streamed. The choice depends only on the
// inputs.
func SelectSynthesis(transcript, observation string, image bool, prompt string) (SynthesisPolicy, string) {
	if data, ok := StructuredObservation(observation); ok {
		return PolicyStructured, structuredSynthesisPrompt(data)
	}
	if strings.TrimSpace(transcript) == "" {
		return PolicyAcknowledge, acknowledgeSynthesisPrompt(prompt)
	}
	raw := rawAnswer(transcript)
	if image {
		return PolicyImage, imageSynthesisPrompt(raw)
	}
	return PolicyEditorial, editorialSynthesisPrompt(raw)
}

func (a *Agent) synthesize(ctx context.Context, r *run) error {
	ctx, span := a.tracer.Start(ctx, "agent.synthesize")
	defer span.End()

	policy, prompt := SelectSynthesis(r.reasoned.String(), r.observation, r.req.Image != nil, r.req.Prompt)
	span.SetAttributes(attribute.String("synthesis.policy", string(policy)))
	r.log.Debug().Str("policy", string(policy)).Msg("synthesizing")

	answer, err := a.model.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("synthesis: %w", err)
	}
	r.answer = answer
	return nil
}
