package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Translate maps a question in any language to English medical terminology
// for searching the English-language index. Translation failures are never
// fatal: the original question is used as-is so retrieval still runs.
func (e *Engine) Translate(ctx context.Context, query string) string {
	tctx, cancel := context.WithTimeout(ctx, e.Cfg.TranslationTimeout)
	defer cancel()

	prompt := fmt.Sprintf(translationPromptFmt, query)
	out, err := llms.GenerateFromSinglePrompt(tctx, e.LLM, prompt,
		llms.WithTemperature(0.1),
		llms.WithMaxTokens(50),
	)
	if err != nil {
		e.Logger.Warn("query translation failed, using original query", "error", err)
		return query
	}

	translated := cleanTranslation(out)
	if translated == "" {
		return query
	}
	e.Logger.Debug("query translated", "original", query, "translated", translated)
	return translated
}

// cleanTranslation strips the chatter small instruct models add around the
// translation: newlines, surrounding quotes, and trailing commentary after
// the first sentence terminator.
func cleanTranslation(raw string) string {
	s := strings.ReplaceAll(raw, "\n", " ")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	for _, stop := range []string{". ", "\t"} {
		if i := strings.Index(s, stop); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	return strings.TrimSpace(s)
}
