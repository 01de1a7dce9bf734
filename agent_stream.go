package agent

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Protocol-Lattice/research-agent/pkg/event"
	"github.com/Protocol-Lattice/research-agent/pkg/models"
)

// reason runs the deep lane up to, but not including, thinking_done.
func (a *Agent) reason(ctx context.Context, r *run) error {
	ctx, span := a.tracer.Start(ctx, "agent.reason")
	defer span.End()

	if img := r.req.Image; img != nil {
		if err := r.emit.Emit(ctx, event.StatusUpdate(analyzingImageStatus)); err != nil {
			return err
		}
		// Single multimodal pass without history or directive scanning.
		text, err := a.streamThinking(ctx, r, models.StreamRequest{
			Prompt: imagePrompt(r.req.Prompt),
			Files:  []models.File{{Name: img.Filename, MIME: img.MIME, Data: img.Data}},
		})
		r.reasoned.WriteString(text)
		return err
	}

	prompt := reasoningPrompt(a.systemPrompt, a.knowledgeBase, a.tools.Specs(), r.req.Prompt, r.req.Document)
	first, err := a.streamThinking(ctx, r, models.StreamRequest{History: r.history, Prompt: prompt})
	r.reasoned.WriteString(first)
	if err != nil {
		return err
	}

	directive, ok := ParseDirective(first)
	if !ok {
		return nil
	}
	span.SetAttributes(attribute.String("directive.tool", directive.Tool))
	if _, _, registered := a.tools.Lookup(directive.Tool); !registered {
		r.log.Debug().Str("tool", directive.Tool).Msg("ignoring directive for unknown tool")
		return nil
	}

	observation, err := a.runTool(ctx, r, directive)
	if err != nil {
		return err
	}
	r.observation = observation
	r.reasoned.WriteString(observationBlock(directive.Tool, observation))

	if err := r.stages.To(StageReasoning); err != nil {
		return err
	}
	history := append(append([]models.Message(nil), r.history...),
		models.Message{Role: models.RoleUser, Content: prompt},
		models.Message{Role: models.RoleModel, Content: first},
	)
	// Directives in the second pass are not honoured.
	second, err := a.streamThinking(ctx, r, models.StreamRequest{History: history, Prompt: observationPrompt(observation)})
	r.reasoned.WriteString(second)
	return err
}

// streamThinking forwards one sanitised model stream as thinking_chunk
// events and returns the sanitised concatenation.
func (a *Agent) streamThinking(ctx context.Context, r *run, req models.StreamRequest) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := a.reasoningModel.GenerateStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("reasoning stream: %w", err)
	}
	var (
		acc   strings.Builder
		clean chunkSanitizer
	)
	forward := func(text string) error {
		if text == "" {
			return nil
		}
		if err := r.emit.Emit(ctx, event.ThinkingChunk(text)); err != nil {
			return err
		}
		acc.WriteString(text)
		return nil
	}
	for chunk := range ch {
		if chunk.Err != nil {
			return acc.String(), fmt.Errorf("reasoning stream: %w", chunk.Err)
		}
		if err := forward(clean.Push(chunk.Delta)); err != nil {
			return acc.String(), err
		}
	}
	if err := ctx.Err(); err != nil {
		return acc.String(), err
	}
	if err := forward(clean.Flush()); err != nil {
		return acc.String(), err
	}
	return acc.String(), nil
}
