// Package agent implements the research agent's response pipeline. A
// request is classified into a lane, answered either directly or through
// streamed reasoning with at most one tool call, and finished by a
// synthesis pass. Progress is reported as typed events.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Protocol-Lattice/research-agent/pkg/event"
	"github.com/Protocol-Lattice/research-agent/pkg/history"
	"github.com/Protocol-Lattice/research-agent/pkg/metrics"
	"github.com/Protocol-Lattice/research-agent/pkg/models"
)

const (
	instrumentationName = "github.com/Protocol-Lattice/research-agent"

	// DefaultHistoryLimit is how many prior turns feed the model.
	DefaultHistoryLimit = 10

	contentBlockedMessage = "Your request may contain inappropriate or sensitive content. Please try again with a different question."
	analyzingImageStatus  = "Analyzing the image..."
)

// Agent runs the response pipeline.
type Agent struct {
	model          models.Agent
	reasoningModel models.Agent
	router         models.Agent
	history        history.Store
	tools          ToolCatalog
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer

	systemPrompt  string
	knowledgeBase string
	historyLimit  int
}

// Options configure a new Agent.
type Options struct {
	// Model serves direct answers and synthesis. Required.
	Model models.Agent
	// ReasoningModel drives the deep lane. Defaults to Model.
	ReasoningModel models.Agent
	// Router classifies requests. Defaults to Model.
	Router models.Agent
	// History is required.
	History history.Store

	Tools       []Tool
	ToolCatalog ToolCatalog

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer

	SystemPrompt  string
	KnowledgeBase string
	HistoryLimit  int
}

// New creates an Agent with the provided options.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}
	if opts.History == nil {
		return nil, errors.New("agent requires a history store")
	}

	catalog := opts.ToolCatalog
	if catalog == nil {
		catalog = NewStaticToolCatalog(nil)
	}
	for _, tool := range opts.Tools {
		if tool == nil {
			continue
		}
		if err := catalog.Register(tool); err != nil {
			return nil, err
		}
	}

	a := &Agent{
		model:          opts.Model,
		reasoningModel: opts.ReasoningModel,
		router:         opts.Router,
		history:        opts.History,
		tools:          catalog,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		tracer:         opts.Tracer,
		systemPrompt:   opts.SystemPrompt,
		knowledgeBase:  opts.KnowledgeBase,
		historyLimit:   opts.HistoryLimit,
	}
	if a.reasoningModel == nil {
		a.reasoningModel = a.model
	}
	if a.router == nil {
		a.router = a.model
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(instrumentationName)
	}
	if strings.TrimSpace(a.systemPrompt) == "" {
		a.systemPrompt = defaultSystemPrompt
	}
	if a.historyLimit <= 0 {
		a.historyLimit = DefaultHistoryLimit
	}
	return a, nil
}

// Tools exposes the catalog the agent resolves directives against.
func (a *Agent) Tools() ToolCatalog { return a.tools }

// run is the per-request pipeline state.
type run struct {
	req         Request
	log         zerolog.Logger
	emit        *emitter
	stages      *stageMachine
	history     []models.Message
	lane        Lane
	thought     bool // thinking_done sent
	reasoned    strings.Builder
	observation string // the request's single tool result
	answer      string
}

// Stream runs req and delivers its events to sink. It returns an error
// only when the request is invalid (nothing is emitted) or when the sink
// stops accepting events. Pipeline failures are reported as an error
// event and Stream returns nil.
func (a *Agent) Stream(ctx context.Context, req Request, sink event.Sink) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(req.SessionID) == "" {
		req.SessionID = DefaultSessionID
	}

	requestID := uuid.NewString()
	r := &run{
		req: req,
		log: a.logger.With().Str("request_id", requestID).Str("session_id", req.SessionID).Logger(),
		emit: newEmitter(sink, func(t event.Type) {
			a.metrics.ObserveTerminal(string(t))
		}),
		stages: newStageMachine(func(s Stage, d time.Duration) {
			a.metrics.ObserveStage(string(s), d)
		}),
	}
	defer a.metrics.StreamOpened()()

	ctx, span := a.tracer.Start(ctx, "agent.request", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("session.id", req.SessionID),
	))
	defer span.End()

	err := a.execute(ctx, r)
	if err == nil {
		a.remember(ctx, r, history.RoleModel, r.answer)
		return nil
	}
	if isSinkError(err) {
		r.log.Warn().Err(err).Str("stage", string(r.stages.Current())).Msg("caller went away")
		span.RecordError(err)
		return err
	}

	r.log.Error().Err(err).Str("stage", string(r.stages.Current())).Msg("pipeline failed")
	span.RecordError(err)
	_ = r.stages.To(StageError)
	// The deep lane always closes its thinking phase before the terminal event.
	if r.lane == LaneDeep && !r.thought {
		if emitErr := r.emit.Emit(ctx, event.ThinkingDone()); emitErr != nil {
			return emitErr
		}
	}
	if emitErr := r.emit.Emit(ctx, event.Error(errorMessage(err))); emitErr != nil && !errors.Is(emitErr, errStreamEnded) {
		return emitErr
	}
	return nil
}

// Events runs req in the background and returns its event stream. The
// channel is closed after the terminal event or when ctx ends.
func (a *Agent) Events(ctx context.Context, req Request) (<-chan event.Event, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ch := make(chan event.Event, 16)
	go func() {
		defer close(ch)
		if err := a.Stream(ctx, req, event.NewChannelSink(ch)); err != nil {
			a.logger.Debug().Err(err).Msg("event stream ended early")
		}
	}()
	return ch, nil
}

// Answer runs req to completion and returns the final answer. An error
// event is returned as an error carrying its message.
func (a *Agent) Answer(ctx context.Context, req Request) (string, error) {
	var rec event.Recorder
	if err := a.Stream(ctx, req, &rec); err != nil {
		return "", err
	}
	last, ok := rec.Last()
	switch {
	case !ok:
		return "", errors.New("pipeline produced no events")
	case last.Type == event.TypeError:
		return "", errors.New(last.Content)
	}
	return last.Content, nil
}

// execute drives the stages. A nil return means final_answer went out.
func (a *Agent) execute(ctx context.Context, r *run) error {
	turns, err := a.history.Recent(ctx, r.req.SessionID, a.historyLimit)
	if err != nil {
		r.log.Warn().Err(err).Msg("history read failed, continuing without context")
	}
	r.history = toMessages(turns)
	a.remember(ctx, r, history.RoleUser, userTurnText(r.req))

	if err := r.stages.To(StageClassifying); err != nil {
		return err
	}
	r.lane = a.classify(ctx, r)
	a.metrics.ObserveLane(string(r.lane))
	r.log.Debug().Str("lane", string(r.lane)).Msg("request classified")

	if r.lane == LaneDirect {
		if err := r.stages.To(StageDirectAnswering); err != nil {
			return err
		}
		if err := a.directAnswer(ctx, r); err != nil {
			return err
		}
	} else {
		if err := r.stages.To(StageReasoning); err != nil {
			return err
		}
		if err := a.reason(ctx, r); err != nil {
			return err
		}
		if err := r.emit.Emit(ctx, event.ThinkingDone()); err != nil {
			return err
		}
		r.thought = true
		if err := r.stages.To(StageSynthesizing); err != nil {
			return err
		}
		if err := a.synthesize(ctx, r); err != nil {
			return err
		}
	}

	if err := r.emit.Emit(ctx, event.FinalAnswer(r.answer)); err != nil {
		return err
	}
	return r.stages.To(StageDone)
}

func (a *Agent) directAnswer(ctx context.Context, r *run) error {
	ctx, span := a.tracer.Start(ctx, "agent.direct_answer")
	defer span.End()

	ch, err := a.model.GenerateStream(ctx, models.StreamRequest{
		History: r.history,
		Prompt:  directPrompt(r.req.Prompt, len(r.history) == 0),
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("direct answer: %w", err)
	}
	answer, err := models.Collect(ctx, ch)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("direct answer: %w", err)
	}
	r.answer = answer
	return nil
}

// remember appends a turn. Failures are logged and swallowed; empty text
// is never written.
func (a *Agent) remember(ctx context.Context, r *run, role, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := a.history.Append(ctx, r.req.SessionID, role, text); err != nil {
		r.log.Warn().Err(err).Str("role", role).Msg("history write failed")
	}
}

func userTurnText(req Request) string {
	if name := req.attachmentName(); name != "" {
		return fmt.Sprintf("%s\n(attached file: %s)", req.Prompt, name)
	}
	return req.Prompt
}

func toMessages(turns []history.Turn) []models.Message {
	msgs := make([]models.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, models.Message{Role: t.Role, Content: t.Text})
	}
	return msgs
}

// errorMessage renders err for the caller.
func errorMessage(err error) string {
	if errors.Is(err, models.ErrContentBlocked) {
		return contentBlockedMessage
	}
	return "internal error: " + err.Error()
}
