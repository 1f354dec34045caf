package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/types"
	"github.com/quantnest/tradeflow/utils"
)

const (
	notionBaseURL = "https://api.notion.com/v1"
	notionVersion = "2022-06-28"
)

// NotionClient publishes the daily trading summary as a child page of the
// configured parent page. Credentials travel in node metadata, never in the
// client.
type NotionClient struct {
	Client  *http.Client
	BaseURL string
}

func NewNotionClient() *NotionClient {
	return &NotionClient{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: notionBaseURL,
	}
}

func (n *NotionClient) Publish(ctx context.Context, meta types.ReportMeta, event types.EventType, details types.EventDetails) error {
	if meta.APIKey == "" {
		return errors.NotValidf("report publisher: missing API key")
	}

	title := fmt.Sprintf("Trading Summary for %s", time.Now().Format("2006-01-02"))
	payload := map[string]any{
		"parent": map[string]string{"page_id": meta.ParentPageID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{
					{"text": map[string]string{"content": title}},
				},
			},
		},
		"children": []map[string]any{
			paragraph(fmt.Sprintf("Latest event: %s", event)),
			paragraph(fmt.Sprintf("Symbol: %s, quantity: %.0f, exchange: %s",
				details.Symbol, details.Quantity, details.Exchange)),
		},
	}

	body, err := utils.Serialize(payload)
	if err != nil {
		return errors.Trace(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+"/pages", bytes.NewReader(body))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Authorization", "Bearer "+meta.APIKey)

	resp, err := n.Client.Do(req)
	if err != nil {
		return errors.Annotatef(err, "creating report page")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Errorf("notion page create: status %d, body: %s", resp.StatusCode, string(respBody))
		return errors.Errorf("notion API status %d", resp.StatusCode)
	}
	return nil
}

func paragraph(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{
				{"type": "text", "text": map[string]string{"content": text}},
			},
		},
	}
}
