package generator

import (
	"context"
	"errors"
	"time"

	"persona_studio/logger"
	"persona_studio/persona"
)

// Agent 负责把草稿按分身设定改写为平台文案。
type Agent struct {
	llm     LLMClient
	timeout time.Duration
	log     *logger.Logger
}

// AgentOption customizes an Agent.
type AgentOption func(*Agent)

// WithTimeout bounds each model call; zero means no deadline.
func WithTimeout(d time.Duration) AgentOption {
	return func(a *Agent) { a.timeout = d }
}

func WithLogger(l *logger.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{llm: llm, log: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Generate 构造提示词、调用模型并解析结果。每次调用独立，无重试无缓存。
func (a *Agent) Generate(ctx context.Context, draft string, p persona.Persona) (Result, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	prompt := BuildPersonaPrompt(draft, p)
	start := time.Now()
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		a.log.Warn("model call failed", "persona_id", p.ID, "platform", string(p.Platform), "error", err)
		return Result{}, &GenerationError{PersonaID: p.ID, Err: err}
	}
	res, err := ParseResult(raw)
	if err != nil {
		a.log.Warn("model response rejected", "persona_id", p.ID, "error", err)
		if errors.Is(err, ErrEmptyResponse) {
			return Result{}, &GenerationError{PersonaID: p.ID, Err: err}
		}
		return Result{}, err
	}
	a.log.Debug("model call done", "persona_id", p.ID, "duration_ms", time.Since(start).Milliseconds(), "tags", len(res.Tags))
	return res, nil
}
