package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient wraps the official OpenAI Go SDK. Audio goes to Whisper,
// which only returns the spoken language.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{client: &client, model: model}
}

func (c *OpenAIClient) Model() string {
	return c.model
}

// Transcribe implements the transcription method
func (c *OpenAIClient) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	file, err := os.Open(req.Audio.Path)
	if err != nil {
		return "", fmt.Errorf("opening audio: %w", err)
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModelWhisper1,
	}
	if req.Source != LangAuto {
		params.Language = openai.String(string(req.Source))
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}

// KeepsSourceLanguage reports that Whisper output is never translated here
func (c *OpenAIClient) KeepsSourceLanguage() bool {
	return true
}

// Generate implements the chat completion method
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Close() error {
	return nil
}
