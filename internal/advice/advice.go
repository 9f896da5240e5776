// Package advice asks a chat-completions model for golf advice and venue
// suggestions. Answers are free text for display only.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Shown when the model cannot be reached.
const (
	FallbackAdvice = "AI 캐디 연결에 실패했습니다. 나중에 다시 시도해주세요."
	FallbackPlaces = "코스 정보를 찾을 수 없습니다."
	emptyAnswer    = "죄송합니다. 요청을 처리할 수 없습니다."
)

// Defaults for Config.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second
)

// ErrNotConfigured means no API key was provided.
var ErrNotConfigured = errors.New("advice: no API key configured")

// Source is a reference the answer drew on.
type Source struct {
	Title string
	Link  string
}

// Answer is what the advisor said.
type Answer struct {
	Text    string
	Sources []Source
}

// Advisor answers golf questions.
type Advisor interface {
	Advice(ctx context.Context, query string) (Answer, error)
	Places(ctx context.Context, course, meal string) (Answer, error)
}

// Config selects the model endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
	HTTP    *http.Client
}

// Client is an Advisor backed by an OpenAI-compatible chat completions API.
// Failures are logged and answered with a fallback text, never an error.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	venue   Venue
}

var _ Advisor = (*Client)(nil)

// NewClient creates a Client. It fails only if the embedded venue guide is
// unreadable.
func NewClient(cfg Config) (*Client, error) {
	venue, err := HomeVenue()
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    cfg.HTTP,
		logger:  cfg.Logger,
		tracer:  otel.Tracer("github.com/mmynk/clubhouse/internal/advice"),
		venue:   venue,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// Advice answers a question with the venue guide as context. Courses named
// in the question are listed as sources.
func (c *Client) Advice(ctx context.Context, query string) (Answer, error) {
	text, sources, err := c.chat(ctx, "advice.ask", c.caddyPrompt(), query)
	if err != nil {
		c.logger.Warn("Advice request failed", "error", err)
		return Answer{Text: FallbackAdvice}, nil
	}
	if text == "" {
		text = emptyAnswer
	}
	for _, course := range c.venue.mentioned(query) {
		sources = append(sources, Source{Title: course.Name, Link: course.MapURL})
	}
	return Answer{Text: text, Sources: sources}, nil
}

// Places suggests where to eat before or after a round at course. meal is
// free text such as lunch or dinner.
func (c *Client) Places(ctx context.Context, course, meal string) (Answer, error) {
	if meal == "" {
		meal = "식사"
	}
	query := fmt.Sprintf("%s 주변에서 골프 모임 %s 하기 좋은 곳을 추천해 주세요. 이름, 주소, 이동 시간을 한국어로 간단히 알려주세요.", course, meal)
	text, sources, err := c.chat(ctx, "advice.places", "당신은 골프장 주변 맛집과 편의시설을 잘 아는 안내원입니다.", query)
	if err != nil || text == "" {
		if err != nil {
			c.logger.Warn("Places request failed", "course", course, "error", err)
		}
		return Answer{Text: FallbackPlaces}, nil
	}
	return Answer{Text: text, Sources: sources}, nil
}

func (c *Client) caddyPrompt() string {
	guide, _ := json.Marshal(c.venue)
	return `당신은 '동물원 AI 캐디'입니다. 세계적인 프로 골프 코치이자 ` + c.venue.Name + ` 전문 가이드입니다.

다음은 코스의 홀별 상세 정보입니다:
` + string(guide) + `

1. 특정 홀에 대해 물으면 위 데이터의 거리, 파, 설명, 공략법을 정확히 인용하세요.
2. 모든 답변은 한국어로 제공하며, 골퍼들에게 실질적인 도움이 되는 조언을 제공하세요.
3. 산악 지형과 경사 같은 코스 특징을 답변에 녹여내세요.`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content     string `json:"content"`
			Annotations []struct {
				Type        string `json:"type"`
				URLCitation struct {
					Title string `json:"title"`
					URL   string `json:"url"`
				} `json:"url_citation"`
			} `json:"annotations"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) chat(ctx context.Context, span, system, user string) (text string, sources []Source, err error) {
	ctx, sp := c.tracer.Start(ctx, span, trace.WithAttributes(attribute.String("advice.model", c.model)))
	defer func() {
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
		}
		sp.End()
	}()

	if c.apiKey == "" {
		return "", nil, ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", nil, fmt.Errorf("llm status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil, errors.New("empty choices")
	}

	msg := result.Choices[0].Message
	for _, a := range msg.Annotations {
		if a.Type == "url_citation" && a.URLCitation.URL != "" {
			sources = append(sources, Source{Title: a.URLCitation.Title, Link: a.URLCitation.URL})
		}
	}
	return strings.TrimSpace(msg.Content), sources, nil
}
