package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// lineBreaks maps the break markup models emit to a plain newline.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n",
	"<br />", "\n",
	"<br/>", "\n",
	"<br>", "\n",
	"&lt;br /&gt;", "\n",
	"&lt;br/&gt;", "\n",
	"&lt;br&gt;", "\n",
	`\r\n`, "\n",
	`\n`, "\n",
)

// GenerateStage returns the stage that answers the query from the retrieved context.
// With no retrieved passages it sets the no-information sentinel and never calls the generator.
func GenerateStage(generator driven.LLMService, prompts driven.PromptStore, assistantName string) StageFunc {
	return func(ctx context.Context, state domain.QueryState) (domain.QueryUpdate, error) {
		if state.RetrievedCount == 0 {
			logger.Debug("No passages retrieved, skipping generation")
			answer := domain.NoInformationSentinel
			return domain.QueryUpdate{Answer: &answer}, nil
		}

		template := loadPrompt(prompts, driven.PromptGeneration, domain.DefaultGenerationPrompt)
		system := strings.NewReplacer(
			domain.PlaceholderAssistantName, assistantName,
			domain.PlaceholderContext, state.Context,
		).Replace(template)

		messages := []driven.ChatMessage{
			{Role: driven.RoleSystem, Content: system},
			{Role: driven.RoleUser, Content: state.Query},
		}

		reply, err := generator.Chat(ctx, messages, driven.ChatOptions{Temperature: 0})
		if err != nil {
			return domain.QueryUpdate{}, fmt.Errorf("%w: generate answer: %w", domain.ErrProvider, err)
		}

		answer := NormaliseAnswer(reply)
		return domain.QueryUpdate{Answer: &answer}, nil
	}
}

// NormaliseAnswer converts HTML and escaped line breaks to newlines.
func NormaliseAnswer(text string) string {
	return lineBreaks.Replace(text)
}

// loadPrompt returns the named prompt from store, or fallback when the store
// is nil or cannot supply it.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Warn("Using built-in %s prompt: %v", name, err)
		return fallback
	}
	return prompt
}
