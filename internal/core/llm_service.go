package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	defaultIdeasModelName = "gemini-1.5-flash-latest"

	ideasSystemInstruction = "You help a Secret Santa pick a present. " +
		"Given the receiver's wishlist, suggest up to five concrete, affordable gift ideas as a short bulleted list. " +
		"Stay close to what the wishlist asks for and do not invent personal details."
)

// IdeaGenerator suggests presents for a wishlist.
type IdeaGenerator interface {
	SuggestGifts(ctx context.Context, wishlist string) (string, error)
}

type LLMService struct {
	client *genai.Client
	logger *zap.Logger
}

func NewLLMService(ctx context.Context, apiKey string, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client, logger: logger}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("Error closing GenAI client", zap.Error(err))
		} else {
			s.logger.Info("GenAI client closed")
		}
	}
}

func (s *LLMService) SuggestGifts(ctx context.Context, wishlist string) (string, error) {
	model := s.client.GenerativeModel(defaultIdeasModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ideasSystemInstruction)},
	}

	temp := float32(0.7)
	maxTokens := int32(300)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	prompt := fmt.Sprintf("Wishlist:\n%s", wishlist)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini gift ideas request failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("LLM did not generate gift ideas (empty response)")
	}

	var ideas strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			ideas.WriteString(string(txt))
		} else {
			s.logger.Debug("Gemini response part was not text", zap.String("type", fmt.Sprintf("%T", part)))
		}
	}

	if ideas.Len() == 0 {
		return "", fmt.Errorf("LLM generated an empty gift ideas string")
	}
	return strings.TrimSpace(ideas.String()), nil
}
