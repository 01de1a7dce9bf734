package agent

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Protocol-Lattice/research-agent/pkg/event"
)

// runTool executes a registered directive and returns the observation.
// Tool failures arrive as text and never abort the pipeline.
func (a *Agent) runTool(ctx context.Context, r *run, d ToolDirective) (string, error) {
	if err := r.stages.To(StageToolPending); err != nil {
		return "", err
	}
	if err := r.emit.Emit(ctx, event.StatusUpdate(a.tools.StatusLabel(d.Tool))); err != nil {
		return "", err
	}

	ctx, span := a.tracer.Start(ctx, "agent.tool")
	span.SetAttributes(attribute.String("tool.name", d.Tool))
	defer span.End()

	start := time.Now()
	out, ok := a.tools.Invoke(ctx, d.Tool, d.Query)
	span.SetAttributes(attribute.Bool("tool.ok", ok))
	a.metrics.ObserveTool(d.Tool, ok)

	logEvt := r.log.Info()
	if !ok {
		logEvt = r.log.Warn().Str("result", out)
	}
	logEvt.Str("tool", d.Tool).Dur("duration", time.Since(start)).Bool("ok", ok).Msg("tool invoked")

	if err := r.stages.To(StageToolObserved); err != nil {
		return "", err
	}
	return out, nil
}
