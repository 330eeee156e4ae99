package oracle

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend implements LLMBackend using the Google Gemini API.
// The API key is read from the GEMINI_API_KEY environment variable.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a new Gemini backend.
func NewGeminiBackend(ctx context.Context, model string) (*GeminiBackend, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &GeminiBackend{client: client, model: model}, nil
}

// Name returns the backend name.
func (*GeminiBackend) Name() string {
	return "gemini"
}

// Generate calls the Gemini GenerateContent endpoint.
func (b *GeminiBackend) Generate(
	ctx context.Context,
	req GenerateRequest,
) (GenerateResponse, error) {
	model := b.client.GenerativeModel(b.model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.Format == FormatJSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.SystemMsg != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemMsg)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return GenerateResponse{}, fmt.Errorf("calling gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return GenerateResponse{}, fmt.Errorf("empty candidates from gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return GenerateResponse{}, fmt.Errorf("unexpected part type in gemini response")
	}

	out := GenerateResponse{Content: string(text), Model: b.model}
	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Close releases the underlying client.
func (b *GeminiBackend) Close() error {
	return b.client.Close()
}
