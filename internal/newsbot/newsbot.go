package newsbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	topHeadlinesURL = "https://newsapi.org/v2/top-headlines"
	everythingURL   = "https://newsapi.org/v2/everything"
	chatURL         = "https://api.openai.com/v1/chat/completions"

	defaultReliability = 75
)

// ErrNoSummarizer is returned when summarization is requested without an LLM
// credential; summaries have no local fallback.
var ErrNoSummarizer = errors.New("OpenAI API key not configured, cannot generate summary")

var numberPattern = regexp.MustCompile(`\d+`)

// Wordlists backing the local sentiment fallback.
var (
	positiveWords = []string{"great", "good", "success", "breakthrough", "positive", "win", "improve"}
	negativeWords = []string{"fail", "crisis", "bad", "death", "crash", "negative", "loss", "decline"}
)

// Bot is a thin shim over the external news and language-model APIs. It has
// no persistent state; a failed upstream call is surfaced immediately with
// no retry. Credentials can be swapped at runtime via UpdateCredentials.
type Bot struct {
	mu         sync.RWMutex
	newsAPIKey string
	pageSize   int
	llm        *chatClient
	client     *http.Client
	log        *zap.Logger
}

func New(newsAPIKey, openaiKey, model string, pageSize int, log *zap.Logger) *Bot {
	if pageSize <= 0 {
		pageSize = 10
	}
	client := &http.Client{Timeout: 30 * time.Second}

	var llm *chatClient
	if openaiKey != "" {
		llm = &chatClient{apiKey: openaiKey, model: model, client: client}
	}

	return &Bot{
		newsAPIKey: newsAPIKey,
		pageSize:   pageSize,
		llm:        llm,
		client:     client,
		log:        log,
	}
}

// UpdateCredentials swaps the upstream credentials. An empty openaiKey
// disables the language model and re-enables the local fallbacks.
func (b *Bot) UpdateCredentials(newsAPIKey, openaiKey, model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.newsAPIKey = newsAPIKey
	if openaiKey == "" {
		b.llm = nil
		return
	}
	b.llm = &chatClient{apiKey: openaiKey, model: model, client: b.client}
}

func (b *Bot) newsKey() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.newsAPIKey
}

func (b *Bot) chat() *chatClient {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.llm
}

// FetchNews delegates to the news API: top headlines for a category, or the
// everything endpoint when a free-text query is given.
func (b *Bot) FetchNews(ctx context.Context, category, query string) (map[string]interface{}, error) {
	apiKey := b.newsKey()
	if apiKey == "" {
		return nil, errors.New("news API key not configured")
	}

	endpoint := topHeadlinesURL
	params := url.Values{}
	params.Set("apiKey", apiKey)
	params.Set("pageSize", strconv.Itoa(b.pageSize))
	if query != "" {
		endpoint = everythingURL
		params.Set("q", query)
	} else {
		params.Set("country", "us")
		params.Set("category", category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("news API %d: %s", resp.StatusCode, string(body))
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode news API response: %w", err)
	}
	return payload, nil
}

// Summarize asks the language model for a brief summary in the given
// language. There is no local fallback.
func (b *Bot) Summarize(ctx context.Context, content, language string) (string, error) {
	llm := b.chat()
	if llm == nil {
		return "", ErrNoSummarizer
	}

	system := "You are a helpful news assistant."
	prompt := fmt.Sprintf(
		"Summarize the following news article briefly and concisely in %s. Provide only the summary.\n\nArticle: %s",
		language, content)

	summary, err := llm.complete(ctx, system, prompt, 250)
	if err != nil {
		return "", fmt.Errorf("summarization: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// AnalyzeSentiment classifies content as Positive, Negative or Neutral.
// Without an LLM credential it falls back to counting a fixed wordlist.
func (b *Bot) AnalyzeSentiment(ctx context.Context, content string) string {
	llm := b.chat()
	if llm == nil {
		return fallbackSentiment(content)
	}

	system := "Analyze the sentiment of the following news headline/snippet. Respond with exactly one word: Positive, Negative, or Neutral."
	reply, err := llm.complete(ctx, system, content, 10)
	if err != nil {
		b.log.Warn("sentiment call failed, using fallback", zap.Error(err))
		return "Neutral"
	}

	sentiment := strings.TrimSuffix(strings.TrimSpace(reply), ".")
	switch sentiment {
	case "Positive", "Negative", "Neutral":
		return sentiment
	}
	return "Neutral"
}

// AnalyzeReliability scores content 0-100 for reliability and objectivity.
// Without an LLM credential a constant default is returned.
func (b *Bot) AnalyzeReliability(ctx context.Context, content string) int {
	llm := b.chat()
	if llm == nil {
		return defaultReliability
	}

	system := "Analyze the reliability and objectivity of the following news headline/snippet. Respond with exactly one number between 0 and 100, where 100 is highly reliable and objective."
	reply, err := llm.complete(ctx, system, content, 5)
	if err != nil {
		b.log.Warn("reliability call failed, using default", zap.Error(err))
		return defaultReliability
	}

	match := numberPattern.FindString(reply)
	if match == "" {
		return defaultReliability
	}
	score, err := strconv.Atoi(match)
	if err != nil || score < 0 || score > 100 {
		return defaultReliability
	}
	return score
}

func fallbackSentiment(content string) string {
	lowered := strings.ToLower(content)

	positive, negative := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(lowered, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lowered, w) {
			negative++
		}
	}

	switch {
	case positive > negative:
		return "Positive"
	case negative > positive:
		return "Negative"
	default:
		return "Neutral"
	}
}

// chatClient speaks the chat-completions protocol.
type chatClient struct {
	apiKey string
	model  string
	client *http.Client
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *chatClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat API %d: %s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("empty chat API response")
	}
	return cr.Choices[0].Message.Content, nil
}
