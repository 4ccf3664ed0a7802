package rag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/tmc/langchaingo/llms"
)

type failureKind int

const (
	failureNone failureKind = iota
	failureTimeout
	failureConnection
	failureOther
)

// Generate produces the answer for a question, grounded in contextText when
// grounded is true. Generation failures are not errors to the caller: they
// become a fixed explanatory answer with a zero generation time, which is
// how downstream consumers tell a failed generation from a fast one.
func (e *Engine) Generate(ctx context.Context, question, contextText string, grounded bool) (string, float64) {
	var prompt string
	if grounded {
		prompt = fmt.Sprintf(groundedPromptFmt, contextText, question)
	} else {
		prompt = fmt.Sprintf(ungroundedPromptFmt, question)
	}

	gctx, cancel := context.WithTimeout(ctx, e.Cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	answer, err := llms.GenerateFromSinglePrompt(gctx, e.LLM, prompt,
		llms.WithTemperature(0.1),
		llms.WithTopP(0.9),
		llms.WithMaxTokens(1000),
	)
	if err != nil {
		switch classifyFailure(err) {
		case failureTimeout:
			e.Logger.Error("answer generation timed out", "timeout", e.Cfg.GenerationTimeout)
			return TimeoutAnswer, 0
		case failureConnection:
			e.Logger.Error("generation backend unreachable", "error", err)
			return ConnectionAnswer, 0
		default:
			e.Logger.Error("answer generation failed", "error", err)
			return fmt.Sprintf("Answer generation failed: %v", err), 0
		}
	}
	return answer, msSince(start)
}

func classifyFailure(err error) failureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return failureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.Is(err, syscall.ECONNREFUSED) || urlErr != nil {
		return failureConnection
	}
	return failureOther
}
