package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "models/gemini-2.5-flash"
)

// GeminiConfig holds connection details for the Gemini generateContent API.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Gemini implements question.TextGenerator over the Gemini REST API.
type Gemini struct {
	httpClient  *http.Client
	apiKey      string
	generateURL string
	logger      zerolog.Logger
}

// NewGemini builds a Gemini client. The request deadline comes from the caller's
// context, so httpClient should not carry its own timeout.
func NewGemini(cfg GeminiConfig, httpClient *http.Client, logger zerolog.Logger) *Gemini {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	return &Gemini{
		httpClient:  httpClient,
		apiKey:      cfg.APIKey,
		generateURL: fmt.Sprintf("%s/%s:generateContent", base, model),
		logger:      logger.With().Str("component", "gemini_generator").Logger(),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt as a single user turn and returns the first text part.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	endpoint := g.generateURL + "?key=" + url.QueryEscape(g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("gemini request rejected")
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var gResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("decode gemini payload: %w", err)
	}
	if len(gResp.Candidates) == 0 || len(gResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return gResp.Candidates[0].Content.Parts[0].Text, nil
}
