package agent

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// classify picks the lane. Attachments always take the deep lane, and any
// router failure or unexpected label falls back to it.
func (a *Agent) classify(ctx context.Context, r *run) Lane {
	ctx, span := a.tracer.Start(ctx, "agent.classify")
	defer span.End()

	if r.req.hasAttachment() {
		span.SetAttributes(attribute.String("lane", string(LaneDeep)), attribute.Bool("attachment", true))
		return LaneDeep
	}
	lane, err := Classify(ctx, a.router, r.req.Prompt)
	if err != nil {
		span.RecordError(err)
		r.log.Warn().Err(err).Msg("classifier failed, defaulting to deep reasoning")
	}
	span.SetAttributes(attribute.String("lane", string(lane)))
	return lane
}

// Generator is the completion call the classifier needs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classify asks router for a lane label. Only the exact direct-answer
// token selects LaneDirect; the returned error is informational and the
// lane is always usable.
func Classify(ctx context.Context, router Generator, prompt string) (Lane, error) {
	out, err := router.Generate(ctx, routerPrompt(prompt))
	if err != nil {
		return LaneDeep, err
	}
	if Lane(strings.TrimSpace(out)) == LaneDirect {
		return LaneDirect, nil
	}
	return LaneDeep, nil
}
