package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"anoa.com/innoliber/internal/modules/proposal/dto"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Input is the text an Analyzer reviews.
type Input struct {
	Title         string
	ResearchField string
	Sections      map[string]string
}

type Analyzer interface {
	Analyze(ctx context.Context, in Input) (*dto.AnalysisResult, error)
}

type GeminiAnalyzer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	return &GeminiAnalyzer{client: client, model: model}, nil
}

func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, in Input) (*dto.AnalysisResult, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(in)))
	if err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from model")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	return parseReview(text.String())
}

func buildPrompt(in Input) string {
	keys := make([]string, 0, len(in.Sections))
	for k := range in.Sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var body strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&body, "## %s\n%s\n\n", k, in.Sections[k])
	}

	return fmt.Sprintf(`You review research grant proposals for a national science foundation.

Title: %s
Research field: %s

%s
Score the proposal from 0 to 10 on overall quality, content, format and innovation.
Answer with JSON only, in this shape:
{"quality_score": 0, "content_score": 0, "format_score": 0, "innovation_score": 0,
 "analysis": {"strengths": [], "weaknesses": [], "summary": ""},
 "suggestions": {"<section name>": ["..."]}}
`, in.Title, in.ResearchField, body.String())
}

type review struct {
	QualityScore    float64         `json:"quality_score"`
	ContentScore    float64         `json:"content_score"`
	FormatScore     float64         `json:"format_score"`
	InnovationScore float64         `json:"innovation_score"`
	Analysis        json.RawMessage `json:"analysis"`
	Suggestions     json.RawMessage `json:"suggestions"`
}

// parseReview decodes a model answer, tolerating a fenced code block around
// the JSON, and clamps every score into [0,10].
func parseReview(raw string) (*dto.AnalysisResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var r review
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &r); err != nil {
		return nil, fmt.Errorf("failed to parse model answer: %w", err)
	}

	return &dto.AnalysisResult{
		QualityScore:    clampScore(r.QualityScore),
		ContentScore:    clampScore(r.ContentScore),
		FormatScore:     clampScore(r.FormatScore),
		InnovationScore: clampScore(r.InnovationScore),
		Analysis:        r.Analysis,
		Suggestions:     r.Suggestions,
	}, nil
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 10:
		return 10
	}
	return v
}
