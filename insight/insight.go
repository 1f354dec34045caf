package insight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/types"
	"github.com/quantnest/tradeflow/utils"
)

// Insight is optional AI enrichment for notification content. It is never
// required for a run to succeed.
type Insight struct {
	Reasoning       string `json:"reasoning"`
	RiskFactors     string `json:"riskFactors"`
	Confidence      string `json:"confidence"` // Low | Medium | High
	ConfidenceScore int    `json:"confidenceScore"`
}

// Service generates an insight for an event. Implementations must not fail
// the caller: on any error they return (nil, false).
type Service interface {
	Generate(ctx context.Context, eventType types.EventType, details types.EventDetails) (*Insight, bool)
}

var (
	_ Service = &Disabled{}
	_ Service = &GeminiClient{}
)

// Disabled is the fallback when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, eventType types.EventType, details types.EventDetails) (*Insight, bool) {
	return nil, false
}

// GeminiClient asks a generative model for trade reasoning. The model is
// prompted to answer with a JSON block; anything unparsable is dropped.
type GeminiClient struct {
	Client *http.Client
	APIKey string
	Model  string
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		Client: &http.Client{Timeout: 30 * time.Second},
		APIKey: apiKey,
		Model:  "gemini-2.0-flash",
	}
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiClient) Generate(ctx context.Context, eventType types.EventType, details types.EventDetails) (*Insight, bool) {
	raw, err := g.ask(ctx, buildPrompt(eventType, details))
	if err != nil {
		log.Debugf("insight generation skipped: %v", err)
		return nil, false
	}

	parsed := Insight{}
	if err := utils.Unserialize([]byte(extractJSONBlock(raw)), &parsed); err != nil {
		log.Debugf("insight response unparsable: %v", err)
		return nil, false
	}
	if parsed.Reasoning == "" || parsed.RiskFactors == "" {
		return nil, false
	}
	parsed.Confidence = normalizeConfidence(parsed.Confidence)
	if parsed.ConfidenceScore < 1 || parsed.ConfidenceScore > 10 {
		parsed.ConfidenceScore = 5
	}
	return &parsed, true
}

func (g *GeminiClient) ask(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{}
	reqBody.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = []struct {
		Text string `json:"text"`
	}{{Text: prompt}}

	payload, err := utils.Serialize(reqBody)
	if err != nil {
		return "", errors.Trace(err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", g.Model, g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Trace(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("insight API status %d", resp.StatusCode)
	}

	out := generateResponse{}
	if err := utils.Unserialize(body, &out); err != nil {
		return "", errors.Trace(err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.NotFoundf("insight candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

func buildPrompt(eventType types.EventType, details types.EventDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a trading assistant. A %s event occurred", eventType)
	if details.Symbol != "" {
		fmt.Fprintf(&b, " for %s", details.Symbol)
	}
	if details.Quantity > 0 {
		fmt.Fprintf(&b, " (qty %.0f)", details.Quantity)
	}
	if details.TargetPrice > 0 {
		fmt.Fprintf(&b, " with target price %.2f (%s)", details.TargetPrice, details.Condition)
	}
	if details.FailureReason != "" {
		fmt.Fprintf(&b, ". The trade failed: %s", details.FailureReason)
	}
	b.WriteString(`. Answer with a JSON object {"reasoning": string, "riskFactors": string, "confidence": "Low"|"Medium"|"High", "confidenceScore": 1-10}.`)
	return b.String()
}

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")

func extractJSONBlock(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); len(m) == 2 {
		return m[1]
	}
	return strings.TrimSpace(text)
}

func normalizeConfidence(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "low":
		return "Low"
	case "high":
		return "High"
	}
	return "Medium"
}
