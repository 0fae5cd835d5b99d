package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mcpServer := server.NewMCPServer(
		"yta-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s
}

var languageOption = mcp.WithString("language",
	mcp.Description("Output language: pt, en, es or fr. Omit to keep the spoken language."),
	mcp.Enum("pt", "en", "es", "fr"),
)

var sourceLanguageOption = mcp.WithString("source_language",
	mcp.Description("Spoken language of the audio: pt, en, es or fr. Omit to detect."),
	mcp.Enum("pt", "en", "es", "fr"),
)

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_youtube_metadata",
		mcp.WithDescription("Get title, channel, duration, description, tags and chapters of a YouTube video. Free and fast; use it to check a video before transcribing."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11-character video ID"),
			mcp.Required(),
		),
	), s.handleGetMetadata)

	s.mcpServer.AddTool(mcp.NewTool("transcribe_youtube_audio",
		mcp.WithDescription("Download the audio of a YouTube video and transcribe it with the configured speech model (PAID, takes minutes). Audio above 20 MB after conversion is rejected."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11-character video ID"),
			mcp.Required(),
		),
		languageOption,
		sourceLanguageOption,
	), s.handleTranscribe)

	s.mcpServer.AddTool(mcp.NewTool("analyze_youtube_video",
		mcp.WithDescription("Transcribe a YouTube video, then summarize and analyze the transcript (PAID, takes minutes). Writes report files and returns the summary and analysis."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11-character video ID"),
			mcp.Required(),
		),
		mcp.WithString("style",
			mcp.Description("Summary style"),
			mcp.Enum(string(StyleStructured), string(StyleList), string(StyleParagraph)),
		),
		languageOption,
		sourceLanguageOption,
	), s.handleAnalyze)
}

// handleGetMetadata implements the get_youtube_metadata tool
func (s *MCPServer) handleGetMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	s.logger.Info("get_youtube_metadata", zap.String("url", url))

	metadata, err := s.app.Metadata(ctx, url, false)
	if err != nil {
		s.logger.Error("metadata failed", zap.String("url", url), zap.Error(err))
		return mcp.NewToolResultErrorFromErr("metadata error", err), nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Title: %s\n", metadata.Title)
	fmt.Fprintf(&buf, "Channel: %s\n", metadata.ChannelName())
	fmt.Fprintf(&buf, "Duration: %s\n", FormatDuration(metadata.Duration))
	if metadata.ViewCount > 0 {
		fmt.Fprintf(&buf, "Views: %s\n", FormatCount(metadata.ViewCount))
	}
	fmt.Fprintf(&buf, "Description: %s\n", metadata.Description)
	if len(metadata.Tags) > 0 {
		fmt.Fprintf(&buf, "Tags: %s\n", strings.Join(metadata.Tags, ", "))
	}
	if len(metadata.Categories) > 0 {
		fmt.Fprintf(&buf, "Categories: %s\n", strings.Join(metadata.Categories, ", "))
	}
	for _, ch := range metadata.Chapters {
		fmt.Fprintf(&buf, "Chapter (%s-%s): %s\n", FormatDuration(ch.StartTime), FormatDuration(ch.EndTime), ch.Title)
	}

	return mcp.NewToolResultText(buf.String()), nil
}

// handleTranscribe implements the transcribe_youtube_audio tool
func (s *MCPServer) handleTranscribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, errResult := s.runOptions(request)
	if errResult != nil {
		return errResult, nil
	}
	s.logger.Info("transcribe_youtube_audio", zap.String("url", opts.URL))

	result, err := s.app.Transcribe(ctx, opts)
	if err != nil {
		s.logger.Error("transcription failed", zap.String("url", opts.URL), zap.Error(err))
		return mcp.NewToolResultErrorFromErr("failed to transcribe audio", err), nil
	}

	return mcp.NewToolResultText(result.Transcript.Text), nil
}

// handleAnalyze implements the analyze_youtube_video tool
func (s *MCPServer) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts, errResult := s.runOptions(request)
	if errResult != nil {
		return errResult, nil
	}
	if style := request.GetString("style", ""); style != "" {
		parsed, err := ParseSummaryStyle(style)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts.Style = parsed
	}
	s.logger.Info("analyze_youtube_video", zap.String("url", opts.URL), zap.String("style", string(opts.Style)))

	result, err := s.app.Analyze(ctx, opts)
	if err != nil {
		s.logger.Error("analysis failed", zap.String("url", opts.URL), zap.Error(err))
		return mcp.NewToolResultErrorFromErr("failed to analyze video", err), nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "# %s\n\n", titleOf(result))
	buf.WriteString("## Summary\n\n")
	buf.WriteString(result.Summary.Text)
	buf.WriteString("\n\n## Content Analysis\n\n")
	buf.WriteString(result.Analysis.Text)
	if result.Reports != nil {
		fmt.Fprintf(&buf, "\n\nReport: %s\n", result.Reports.Report)
	}

	return mcp.NewToolResultText(buf.String()), nil
}

// runOptions reads the arguments shared by the pipeline tools
func (s *MCPServer) runOptions(request mcp.CallToolRequest) (RunOptions, *mcp.CallToolResult) {
	url, err := request.RequireString("url")
	if err != nil {
		return RunOptions{}, mcp.NewToolResultError("url parameter is required and must be a string")
	}

	opts := s.app.RunOptionsFromConfig(url)
	if lang := request.GetString("language", ""); lang != "" {
		if opts.Language, err = ParseLanguage(lang); err != nil {
			return RunOptions{}, mcp.NewToolResultError(err.Error())
		}
	}
	if lang := request.GetString("source_language", ""); lang != "" {
		if opts.SourceLanguage, err = ParseLanguage(lang); err != nil {
			return RunOptions{}, mcp.NewToolResultError(err.Error())
		}
	}
	opts.OnStage = func(ev StageEvent) {
		s.logger.Debug("stage", zap.String("run_id", ev.RunID), zap.String("stage", string(ev.Stage)), zap.Int("progress", ev.Progress))
	}
	return opts, nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("starting http transport", zap.String("addr", addr))
		return httpServer.Start(addr)
	}

	s.logger.Info("starting stdio transport")
	return server.ServeStdio(s.mcpServer)
}
