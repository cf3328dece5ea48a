// ABOUTME: Turn handler, middleware chain and error hook shared by both protocols.
// ABOUTME: Each middleware may wrap or short-circuit the rest of the chain.

package adapter

import (
	"context"
	"log/slog"
	"time"
)

// Handler runs conversational logic for one turn.
type Handler func(ctx context.Context, tc *TurnContext) error

// Middleware wraps a turn. Not calling next short-circuits the chain.
type Middleware interface {
	OnTurn(ctx context.Context, tc *TurnContext, next Handler) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, tc *TurnContext, next Handler) error

// OnTurn implements Middleware.
func (f MiddlewareFunc) OnTurn(ctx context.Context, tc *TurnContext, next Handler) error {
	return f(ctx, tc, next)
}

// ErrorHandler handles an error escaping a turn. Its return value becomes the turn's result.
type ErrorHandler func(ctx context.Context, tc *TurnContext, err error) error

// Pipeline runs handlers inside an ordered middleware list.
type Pipeline struct {
	middleware  []Middleware
	onTurnError ErrorHandler
}

// NewPipeline creates a pipeline running middleware in the given order.
func NewPipeline(middleware ...Middleware) *Pipeline {
	return &Pipeline{middleware: middleware}
}

// Use appends middleware.
func (p *Pipeline) Use(m ...Middleware) *Pipeline {
	p.middleware = append(p.middleware, m...)
	return p
}

// OnTurnError sets the hook invoked when a turn fails.
func (p *Pipeline) OnTurnError(h ErrorHandler) *Pipeline {
	p.onTurnError = h
	return p
}

// Run executes h for tc through every middleware.
func (p *Pipeline) Run(ctx context.Context, tc *TurnContext, h Handler) error {
	err := p.chain(0, h)(ctx, tc)
	if err != nil && p.onTurnError != nil {
		return p.onTurnError(ctx, tc, err)
	}
	return err
}

func (p *Pipeline) chain(i int, h Handler) Handler {
	if i == len(p.middleware) {
		return h
	}
	m := p.middleware[i]
	next := p.chain(i+1, h)
	return func(ctx context.Context, tc *TurnContext) error {
		return m.OnTurn(ctx, tc, next)
	}
}

// Logging logs every turn with the protocol it arrived through.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "turn")
	return MiddlewareFunc(func(ctx context.Context, tc *TurnContext, next Handler) error {
		start := time.Now()
		logger.Debug("turn started",
			"protocol", tc.Protocol,
			"via", tc.Protocol.DisplayName(),
			"type", tc.Activity.Type,
			"conversation_id", tc.Activity.ConversationID(),
		)
		err := next(ctx, tc)
		attrs := []any{
			"protocol", tc.Protocol,
			"conversation_id", tc.Activity.ConversationID(),
			"replies", len(tc.Sent()),
			"duration", time.Since(start),
		}
		if err != nil {
			logger.Warn("turn failed", append(attrs, "error", err)...)
			return err
		}
		logger.Info("turn completed", attrs...)
		return nil
	})
}
