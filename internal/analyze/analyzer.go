package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Result is one full transcript analysis.
type Result struct {
	Summary   string   `json:"summary"`
	Quotes    []string `json:"quotes"`
	Topics    []string `json:"topics"`
	Sentiment string   `json:"sentiment"`
	Language  string   `json:"language,omitempty"`
}

// chatClient abstracts the completion API for testability.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Analyzer runs LLM-based transcript analysis through any OpenAI-compatible
// endpoint (hosted or a local server exposing the same API).
type Analyzer struct {
	client   chatClient
	model    string
	detector *LanguageDetector
}

func NewAnalyzer(apiKey, baseURL, model string) *Analyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Analyzer{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		detector: NewLanguageDetector(),
	}
}

const (
	analysisExcerptLen = 4000
	customExcerptLen   = 6000
)

// excerpt truncates the transcript so prompts stay inside context limits.
func excerpt(transcript string, limit int) string {
	if len(transcript) <= limit {
		return transcript
	}
	return transcript[:limit] + "..."
}

func (a *Analyzer) complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{}
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty model response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Summarize produces a 3-5 sentence summary of the transcript.
func (a *Analyzer) Summarize(ctx context.Context, transcript string) (string, error) {
	system := "You are an expert at creating concise, engaging summaries. Extract the key points and main narrative."
	prompt := fmt.Sprintf(`Create a compelling summary of this transcript. Focus on the main themes, key insights, and most interesting points.
Keep it engaging and informative, around 3-5 sentences.

Transcript:
%s`, excerpt(transcript, analysisExcerptLen))
	return a.complete(ctx, system, prompt)
}

// ExtractQuotes finds the most quotable moments, up to maxQuotes.
func (a *Analyzer) ExtractQuotes(ctx context.Context, transcript string, maxQuotes int) ([]string, error) {
	system := "You are an expert at finding the most quotable, interesting, or insightful moments from content."
	prompt := fmt.Sprintf(`Find the %d most quotable moments from this transcript. Look for:
- Profound insights
- Funny or memorable lines
- Controversial or thought-provoking statements
- Key conclusions or revelations

Return ONLY a JSON array of strings, no other text.

Transcript:
%s`, maxQuotes, excerpt(transcript, analysisExcerptLen))

	resp, err := a.complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	quotes := parseList(resp, 20)
	if len(quotes) > maxQuotes {
		quotes = quotes[:maxQuotes]
	}
	return quotes, nil
}

// ExtractTopics identifies the main topics and themes, up to 10.
func (a *Analyzer) ExtractTopics(ctx context.Context, transcript string) ([]string, error) {
	system := "You are an expert at identifying key topics and themes from content."
	prompt := fmt.Sprintf(`Identify the main topics, themes, and subjects discussed in this transcript.
Return 5-10 key topics as a JSON array of strings.

Transcript:
%s`, excerpt(transcript, analysisExcerptLen))

	resp, err := a.complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}
	topics := parseList(resp, 0)
	if len(topics) > 10 {
		topics = topics[:10]
	}
	return topics, nil
}

// Sentiment describes the overall emotional tone in 1-2 sentences.
func (a *Analyzer) Sentiment(ctx context.Context, transcript string) (string, error) {
	system := "You are an expert at analyzing emotional tone and sentiment in content."
	prompt := fmt.Sprintf(`Analyze the overall sentiment and emotional tone of this transcript.
Describe it in 1-2 sentences, focusing on the dominant emotions and overall vibe.

Transcript:
%s`, excerpt(transcript, analysisExcerptLen))
	return a.complete(ctx, system, prompt)
}

// Custom runs a user-provided analysis prompt against the transcript.
func (a *Analyzer) Custom(ctx context.Context, transcript, customPrompt string) (string, error) {
	prompt := fmt.Sprintf(`%s

Use the following transcript as source material. If evidence is not present, say so explicitly.

Transcript:
%s`, customPrompt, excerpt(transcript, customExcerptLen))
	return a.complete(ctx, "", prompt)
}

// Ping runs a lightweight request to verify the model answers at all.
func (a *Analyzer) Ping(ctx context.Context) error {
	resp, err := a.complete(ctx, "You are a concise assistant.", "Reply with exactly: MODEL_OK")
	if err != nil {
		return err
	}
	if !strings.Contains(resp, "MODEL_OK") {
		return fmt.Errorf("unexpected model test response: %q", resp)
	}
	return nil
}

// FullAnalysis runs every analysis pass sequentially. Sequential on purpose:
// parallel calls against a local model server spike memory.
func (a *Analyzer) FullAnalysis(ctx context.Context, transcript string) (*Result, error) {
	summary, err := a.Summarize(ctx, transcript)
	if err != nil {
		return nil, err
	}
	quotes, err := a.ExtractQuotes(ctx, transcript, 10)
	if err != nil {
		return nil, err
	}
	topics, err := a.ExtractTopics(ctx, transcript)
	if err != nil {
		return nil, err
	}
	sentiment, err := a.Sentiment(ctx, transcript)
	if err != nil {
		return nil, err
	}

	return &Result{
		Summary:   summary,
		Quotes:    quotes,
		Topics:    topics,
		Sentiment: sentiment,
		Language:  a.detector.Detect(transcript),
	}, nil
}

var bulletRe = regexp.MustCompile(`^[-*•]\s*`)

// parseList parses a model response expected to be a JSON array of strings.
// Models frequently answer with a bulleted list instead, so a line-based
// fallback strips bullets and surrounding quotes. minLen filters out headers
// and fragments when non-zero.
func parseList(resp string, minLen int) []string {
	var items []string
	if err := json.Unmarshal([]byte(resp), &items); err == nil {
		return items
	}

	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if minLen > 0 && len(line) <= minLen {
			continue
		}
		line = bulletRe.ReplaceAllString(line, "")
		line = strings.Trim(line, `"'`)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}
