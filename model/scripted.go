package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentchain/core"
)

// ErrScriptExhausted is returned by ScriptedModel when no steps remain.
var ErrScriptExhausted = errors.New("scripted model: no responses left")

// Step is one scripted turn. Exactly one of Response, Err or Handler is used,
// checked in that order of precedence: Handler, Err, Response.
type Step struct {
	Response *Response
	Err      error
	Delay    time.Duration
	Handler  func(req Request) (*Response, error)
}

// ScriptedModel is a deterministic in-memory Model for tests & examples.
// It replays steps in order and records every request it receives.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	steps    []Step
	requests []Request
}

// NewScriptedModel creates a ScriptedModel replaying steps.
func NewScriptedModel(name string, steps ...Step) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: name, Provider: "scripted", SupportsTools: true},
		steps: steps,
	}
}

// Reply is a convenience Step returning plain text.
func Reply(text string) Step { return Step{Response: &Response{Text: text, FinishReason: "stop"}} }

// Fail is a convenience Step returning a transport failure.
func Fail(err error) Step { return Step{Err: NewTransportError("scripted", err)} }

// Then appends further steps.
func (m *ScriptedModel) Then(steps ...Step) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
	return m
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	if len(m.steps) == 0 {
		m.mu.Unlock()
		return nil, NewTransportError("scripted", ErrScriptExhausted)
	}
	step := m.steps[0]
	m.steps = m.steps[1:]
	m.mu.Unlock()

	if step.Delay > 0 {
		select {
		case <-time.After(step.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case step.Handler != nil:
		return step.Handler(req)
	case step.Err != nil:
		return nil, step.Err
	case step.Response != nil:
		resp := *step.Response
		return &resp, nil
	default:
		return nil, fmt.Errorf("scripted model: empty step")
	}
}

// Requests returns the recorded requests in order.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Remaining returns the number of unconsumed steps.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

func cloneRequest(req Request) Request {
	msgs := make([]core.Message, len(req.Messages))
	for i, msg := range req.Messages {
		msgs[i] = msg.Clone()
	}
	req.Messages = msgs
	req.Tools = append([]ToolDefinition(nil), req.Tools...)
	return req
}
