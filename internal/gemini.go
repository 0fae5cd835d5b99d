package internal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient talks to the Gemini API. Audio is uploaded through the
// File API, referenced in a single generate call and deleted afterwards.
type GeminiClient struct {
	client       *genai.Client
	model        string
	pollInterval time.Duration
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiClient{
		client:       client,
		model:        model,
		pollInterval: 2 * time.Second,
	}, nil
}

func (c *GeminiClient) Model() string {
	return c.model
}

// Transcribe uploads the audio and asks the model to transcribe it
func (c *GeminiClient) Transcribe(ctx context.Context, req TranscribeRequest) (string, error) {
	f, err := os.Open(req.Audio.Path)
	if err != nil {
		return "", fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	file, err := c.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: "audio_to_transcribe",
		MIMEType:    req.Audio.Format.MIMEType(),
	})
	if err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}
	defer c.deleteFile(file.Name)

	file, err = c.waitActive(ctx, file)
	if err != nil {
		return "", err
	}

	resp, err := c.client.GenerativeModel(c.model).GenerateContent(ctx,
		genai.Text(req.Prompt),
		genai.FileData{MIMEType: file.MIMEType, URI: file.URI},
	)
	if err != nil {
		return "", fmt.Errorf("generating transcript: %w", err)
	}
	return responseText(resp)
}

// waitActive polls an uploaded file until the service has processed it
func (c *GeminiClient) waitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var err error
		file, err = c.client.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("checking uploaded file: %w", err)
		}
	}

	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("uploaded file %s could not be processed", file.Name)
	}
	return file, nil
}

// deleteFile removes an upload; it outlives the request context on purpose
func (c *GeminiClient) deleteFile(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.client.DeleteFile(ctx, name); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to delete uploaded file %s: %v\n", name, err)
	}
}

// Generate sends a text prompt
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.GenerativeModel(c.model).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return responseText(resp)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates in model response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}
