// Package assessor sends sanitized proposal content to an external
// OpenAI-compatible completion service and parses its structured risk
// opinion. Content is sanitize-enforced immediately before egress even
// though the precheck already ran it; sending flagged content to a third
// party is the exact failure this service exists to prevent.
package assessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"riskgate/internal/proposal"
	"riskgate/internal/riskgate"
	"riskgate/internal/riskgate/sanitize"
	dErrors "riskgate/pkg/domain-errors"
)

// Config fully describes the provider connection. No global state: the
// assessor only knows what it is constructed with.
type Config struct {
	Provider string // label for logs and audit records, e.g. "openrouter"
	BaseURL  string // OpenAI-compatible endpoint; empty means api.openai.com
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Assessor produces an external risk opinion for a proposal.
type Assessor interface {
	Assess(ctx context.Context, p proposal.Proposal) (riskgate.AISummary, error)
}

// chatClient is the slice of the OpenAI client the assessor uses.
// Narrowed to an interface so tests can stub the provider.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client calls the configured provider over the chat completions API.
type Client struct {
	chat    chatClient
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		chat:    openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}
}

// NewWithChatClient constructs an assessor over an existing chat client.
// Used by tests to stub the provider.
func NewWithChatClient(chat chatClient, model string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{chat: chat, model: model, timeout: timeout, logger: logger}
}

const systemPrompt = "You are an expert proposal risk analyzer. Always respond with valid JSON."

// Assess sanitize-enforces the proposal, sends it to the provider under a
// bounded deadline, and parses the reply. Transport failures and malformed
// replies surface as upstream errors; they are never defaulted to a safe
// verdict.
func (c *Client) Assess(ctx context.Context, p proposal.Proposal) (riskgate.AISummary, error) {
	doc := map[string]string{
		"title":       p.Title,
		"client_name": p.ClientName,
		"status":      string(p.Status),
	}
	for title, body := range p.Sections {
		doc["section:"+title] = body
	}

	safeDoc, err := sanitize.Enforce(doc)
	if err != nil {
		return riskgate.AISummary{}, err
	}

	prompt, err := buildPrompt(safeDoc)
	if err != nil {
		return riskgate.AISummary{}, dErrors.Wrap(err, dErrors.CodeInternal, "build assessor prompt")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return riskgate.AISummary{}, dErrors.Wrap(err, dErrors.CodeTimeout, "risk assessor timed out")
		}
		return riskgate.AISummary{}, dErrors.Wrap(err, dErrors.CodeUpstream, "risk assessor unavailable")
	}
	c.logger.DebugContext(ctx, "assessor call complete",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(resp.Choices) == 0 {
		return riskgate.AISummary{}, dErrors.New(dErrors.CodeUpstream, "risk assessor returned no choices")
	}

	summary, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return riskgate.AISummary{}, err
	}
	summary.ModelUsed = c.model
	return summary, nil
}

// buildPrompt renders the instruction with the sanitized document inlined
// as JSON.
func buildPrompt(doc map[string]string) (string, error) {
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`You are an expert proposal reviewer. Analyze this proposal for risks and compliance issues.

Proposal Data:
%s

Analyze for:
1. Missing or incomplete mandatory sections (Executive Summary, Scope & Deliverables, Delivery Approach, Assumptions, Risks)
2. Incomplete client details or engagement metadata
3. Vague or unclear deliverables
4. Missing risk assessments or assumptions
5. Compliance issues and altered clauses that need review

Provide a JSON response with:
{
  "overall_risk_level": "low|medium|high|critical",
  "risk_score": 0-100,
  "issues": [
    {
      "category": "missing_section|incomplete_content|compliance|clarity",
      "severity": "low|medium|high|critical",
      "section": "section name",
      "description": "detailed issue description",
      "recommendation": "how to fix"
    }
  ],
  "summary": "brief summary of all issues"
}

Be thorough and flag even small deviations that could compound into larger risks.`, docJSON), nil
}

// parseReply extracts the JSON object from the model reply. Providers
// occasionally wrap the JSON in prose or code fences, so the parser takes
// the outermost brace-delimited span.
func parseReply(reply string) (riskgate.AISummary, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return riskgate.AISummary{}, dErrors.New(dErrors.CodeUpstream, "risk assessor reply contained no JSON object")
	}

	var summary riskgate.AISummary
	if err := json.Unmarshal([]byte(reply[start:end+1]), &summary); err != nil {
		return riskgate.AISummary{}, dErrors.Wrap(err, dErrors.CodeUpstream, "risk assessor reply was not valid JSON")
	}

	switch summary.OverallRiskLevel {
	case riskgate.LevelLow, riskgate.LevelMedium, riskgate.LevelHigh, riskgate.LevelCritical:
	default:
		return riskgate.AISummary{}, dErrors.Newf(dErrors.CodeUpstream,
			"risk assessor returned unknown risk level %q", summary.OverallRiskLevel)
	}
	if summary.RiskScore < 0 {
		summary.RiskScore = 0
	}
	if summary.RiskScore > 100 {
		summary.RiskScore = 100
	}
	return summary, nil
}
