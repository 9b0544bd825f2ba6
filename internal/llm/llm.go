package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/retry"
	"ghostwriter/internal/textutil"

	"google.golang.org/genai"
)

const (
	// DefaultTextModel is used for every text, JSON and streamed call.
	DefaultTextModel = "gemini-2.5-flash"
	// DefaultImageModel is the Imagen model used for cover and inline images.
	DefaultImageModel = "imagen-4.0-generate-001"
	// DefaultVideoModel is the Veo model used for teaser videos.
	DefaultVideoModel = "veo-3.0-fast-generate-001"
	// DefaultTimeout bounds a single attempt of a non-streaming call.
	DefaultTimeout = 120 * time.Second
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Config configures a Client.
type Config struct {
	APIKey        string
	TextModel     string
	ImageModel    string
	VideoModel    string
	Timeout       time.Duration
	Temperature   float32
	RetryAttempts int
	RetryDelay    time.Duration
}

// Client talks to the Gemini API. Every call is wrapped in the linear retry.
type Client struct {
	gClient     *genai.Client
	textModel   string
	imageModel  string
	videoModel  string
	timeout     time.Duration
	temperature float32
	attempts    int
	delay       time.Duration
}

// TextGenerationOptions contains options for text generation
type TextGenerationOptions struct {
	Label             string        // Stage name, used in logs
	Model             string        // Model to use (optional, defaults to client's model)
	SystemInstruction string        // Optional system instruction
	Temperature       float32       // 0 keeps the client default
	ResponseSchema    *genai.Schema // Requests JSON conforming to the schema
	Grounded          bool          // Enables the Google Search tool
}

// GroundedText is model text plus the web sources the search tool returned.
type GroundedText struct {
	Text    string
	Sources []core.Reference
}

// Image is a generated image payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// VideoResult is the state of a long-running video operation.
type VideoResult struct {
	Done bool
	URI  string
	Err  error
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file.\nGet your API key from: https://aistudio.google.com/app/apikey")
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		gClient:     gClient,
		textModel:   orDefault(cfg.TextModel, DefaultTextModel),
		imageModel:  orDefault(cfg.ImageModel, DefaultImageModel),
		videoModel:  orDefault(cfg.VideoModel, DefaultVideoModel),
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
		attempts:    cfg.RetryAttempts,
		delay:       cfg.RetryDelay,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.attempts < 1 {
		c.attempts = retry.DefaultAttempts
	}
	if c.delay <= 0 {
		c.delay = retry.DefaultBaseDelay
	}
	return c, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func userContent(prompt string) []*genai.Content {
	return []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}
}

// buildConfig translates options into a request config.
// The API rejects a response schema combined with the search tool, so
// grounded calls fall back to prompt-requested JSON and fence-tolerant decoding.
func buildConfig(opts TextGenerationOptions, defaultTemperature float32) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	temperature := defaultTemperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	if temperature > 0 {
		config.Temperature = genai.Ptr(temperature)
	}

	if opts.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemInstruction}},
		}
	}

	if opts.Grounded {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	} else if opts.ResponseSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = opts.ResponseSchema
	}

	return config
}

func (c *Client) model(opts TextGenerationOptions) string {
	return orDefault(opts.Model, c.textModel)
}

// GenerateText runs a non-streaming call and returns the response text.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts TextGenerationOptions) (string, error) {
	res, err := c.GenerateGrounded(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// GenerateGrounded runs a non-streaming call and returns text with grounding sources.
func (c *Client) GenerateGrounded(ctx context.Context, prompt string, opts TextGenerationOptions) (GroundedText, error) {
	if prompt == "" {
		return GroundedText{}, fmt.Errorf("prompt cannot be empty")
	}

	config := buildConfig(opts, c.temperature)
	start := time.Now()

	res, err := retry.Value(ctx, c.attempts, c.delay, func(ctx context.Context) (GroundedText, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.gClient.Models.GenerateContent(callCtx, c.model(opts), userContent(prompt), config)
		if err != nil {
			logger.Warn("Gemini call failed", "stage", opts.Label, "error", err)
			return GroundedText{}, fmt.Errorf("failed to generate text: %w", err)
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return GroundedText{}, ErrEmptyResponse
		}
		return GroundedText{Text: text, Sources: groundingSources(resp)}, nil
	})
	if err != nil {
		return GroundedText{}, err
	}

	logger.Debug("Gemini call completed", "stage", opts.Label, "duration", time.Since(start), "sources", len(res.Sources))
	return res, nil
}

// StreamText runs a streaming call. onChunk receives the accumulated text each
// time a chunk arrives; a retried attempt starts accumulating from scratch.
func (c *Client) StreamText(ctx context.Context, prompt string, opts TextGenerationOptions, onChunk func(accumulated string)) (GroundedText, error) {
	if prompt == "" {
		return GroundedText{}, fmt.Errorf("prompt cannot be empty")
	}

	config := buildConfig(opts, c.temperature)

	return retry.Value(ctx, c.attempts, c.delay, func(ctx context.Context) (GroundedText, error) {
		var (
			text    strings.Builder
			sources []core.Reference
		)
		for resp, err := range c.gClient.Models.GenerateContentStream(ctx, c.model(opts), userContent(prompt), config) {
			if err != nil {
				logger.Warn("Gemini stream failed", "stage", opts.Label, "error", err)
				return GroundedText{}, fmt.Errorf("stream interrupted: %w", err)
			}
			text.WriteString(resp.Text())
			sources = append(sources, groundingSources(resp)...)
			if onChunk != nil {
				onChunk(text.String())
			}
		}
		return GroundedText{Text: text.String(), Sources: sources}, nil
	})
}

// groundingSources extracts web citations from every candidate of a response.
func groundingSources(resp *genai.GenerateContentResponse) []core.Reference {
	if resp == nil {
		return nil
	}
	var sources []core.Reference
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			sources = append(sources, core.Reference{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return sources
}

// GenerateImage renders one image at the given aspect ratio.
func (c *Client) GenerateImage(ctx context.Context, prompt, aspectRatio string) (Image, error) {
	config := &genai.GenerateImagesConfig{NumberOfImages: 1}
	if aspectRatio != "" {
		config.AspectRatio = aspectRatio
	}

	return retry.Value(ctx, c.attempts, c.delay, func(ctx context.Context) (Image, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.gClient.Models.GenerateImages(callCtx, c.imageModel, prompt, config)
		if err != nil {
			return Image{}, fmt.Errorf("failed to generate image: %w", err)
		}
		if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
			return Image{}, fmt.Errorf("image model returned no image")
		}
		img := resp.GeneratedImages[0].Image
		return Image{Data: img.ImageBytes, MIMEType: orDefault(img.MIMEType, "image/png")}, nil
	})
}

// StartVideo starts a video generation and returns its operation name.
func (c *Client) StartVideo(ctx context.Context, prompt, aspectRatio string) (string, error) {
	config := &genai.GenerateVideosConfig{NumberOfVideos: 1}
	if aspectRatio != "" {
		config.AspectRatio = aspectRatio
	}

	return retry.Value(ctx, c.attempts, c.delay, func(ctx context.Context) (string, error) {
		op, err := c.gClient.Models.GenerateVideos(ctx, c.videoModel, prompt, nil, config)
		if err != nil {
			return "", fmt.Errorf("failed to start video generation: %w", err)
		}
		if op == nil || op.Name == "" {
			return "", fmt.Errorf("video generation returned no operation handle")
		}
		return op.Name, nil
	})
}

// PollVideo checks a video operation. A finished operation without a video
// is reported through VideoResult.Err, not the returned error.
func (c *Client) PollVideo(ctx context.Context, operation string) (VideoResult, error) {
	return retry.Value(ctx, c.attempts, c.delay, func(ctx context.Context) (VideoResult, error) {
		op, err := c.gClient.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operation}, nil)
		if err != nil {
			return VideoResult{}, fmt.Errorf("failed to poll video operation: %w", err)
		}
		return videoResult(op), nil
	})
}

func videoResult(op *genai.GenerateVideosOperation) VideoResult {
	if op == nil || !op.Done {
		return VideoResult{}
	}
	if len(op.Error) > 0 {
		return VideoResult{Done: true, Err: fmt.Errorf("video generation failed: %v", op.Error["message"])}
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return VideoResult{Done: true, Err: fmt.Errorf("video generation finished without a video")}
	}
	return VideoResult{Done: true, URI: op.Response.GeneratedVideos[0].Video.URI}
}

// DecodeJSON parses model JSON, tolerating a markdown code fence around it.
func DecodeJSON(raw string, out any) error {
	cleaned := textutil.StripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return nil
}
