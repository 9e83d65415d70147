package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
	"github.com/custodia-labs/openpdpa/internal/logger"
)

// ModerateStage returns the stage that asks the classifier whether the query is allowed.
// Only a reply containing the allow marker allows the query. Any other reply,
// including an empty one, denies it and sets the moderation sentinel as the answer.
func ModerateStage(classifier driven.LLMService, prompts driven.PromptStore) StageFunc {
	return func(ctx context.Context, state domain.QueryState) (domain.QueryUpdate, error) {
		messages := []driven.ChatMessage{
			{Role: driven.RoleSystem, Content: loadPrompt(prompts, driven.PromptModeration, domain.DefaultModerationPrompt)},
			{Role: driven.RoleUser, Content: state.Query},
		}

		reply, err := classifier.Chat(ctx, messages, driven.ChatOptions{Temperature: 0})
		if err != nil {
			return domain.QueryUpdate{}, fmt.Errorf("%w: classify query: %w", domain.ErrProvider, err)
		}
		logger.Debug("Moderation reply: %q", reply)

		allowed := strings.Contains(reply, domain.ModerationAllowMarker)
		answer := ""
		if !allowed {
			answer = domain.ModerationSentinel
		}
		return domain.QueryUpdate{ModerationOK: &allowed, Answer: &answer}, nil
	}
}
