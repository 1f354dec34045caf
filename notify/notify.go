package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/insight"
	"github.com/quantnest/tradeflow/types"
	"github.com/quantnest/tradeflow/utils"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelDiscord  Channel = "discord"
	ChannelWhatsapp Channel = "whatsapp"
)

// Recipient is the channel address plus a display name: an email address, a
// webhook URL, or a phone number.
type Recipient struct {
	Address string
	Name    string
}

// Gateway delivers notifications best-effort. Errors are reported to the
// caller for the execution trace, but implementations must never panic past
// this boundary.
type Gateway interface {
	Send(ctx context.Context, channel Channel, to Recipient, eventType types.EventType, details types.EventDetails) error
}

var _ Gateway = &Dispatcher{}

// Dispatcher fans a notification out to the concrete channel senders,
// enriching the content with an AI insight when one is available.
type Dispatcher struct {
	Client   *http.Client
	Insight  insight.Service
	EmailAPI EmailConfig
	WAAPI    WhatsappConfig
}

type EmailConfig struct {
	APIKey string
	From   string
}

type WhatsappConfig struct {
	APIKey string
	From   string
}

func NewDispatcher(insightSvc insight.Service, email EmailConfig, wa WhatsappConfig) *Dispatcher {
	if insightSvc == nil {
		insightSvc = insight.Disabled{}
	}
	return &Dispatcher{
		Client:   &http.Client{Timeout: 30 * time.Second},
		Insight:  insightSvc,
		EmailAPI: email,
		WAAPI:    wa,
	}
}

func (d *Dispatcher) Send(ctx context.Context, channel Channel, to Recipient, eventType types.EventType, details types.EventDetails) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = errors.Errorf("panic in %s sender: %v", channel, r)
		}
	}()

	ai, _ := d.Insight.Generate(ctx, eventType, details)
	content := Compose(to.Name, eventType, details, ai)

	switch channel {
	case ChannelDiscord:
		return errors.Trace(d.sendDiscord(ctx, to.Address, content))
	case ChannelEmail:
		return errors.Trace(d.sendEmail(ctx, to.Address, content))
	case ChannelWhatsapp:
		return errors.Trace(d.sendWhatsapp(ctx, to.Address, content))
	}
	return errors.NotSupportedf("notification channel %s", channel)
}

func (d *Dispatcher) sendDiscord(ctx context.Context, webhookURL string, content Content) error {
	payload := map[string]any{
		"content": fmt.Sprintf("**%s**\n%s", content.Subject, content.Message),
	}
	return d.postJSON(ctx, webhookURL, nil, payload)
}

func (d *Dispatcher) sendEmail(ctx context.Context, recipientEmail string, content Content) error {
	if d.EmailAPI.APIKey == "" {
		return errors.NotValidf("email sender: missing API key")
	}
	payload := map[string]any{
		"from":    d.EmailAPI.From,
		"to":      recipientEmail,
		"subject": content.Subject,
		"text":    content.Message,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + d.EmailAPI.APIKey,
	}
	return d.postJSON(ctx, "https://api.resend.com/emails", headers, payload)
}

func (d *Dispatcher) sendWhatsapp(ctx context.Context, phoneNumber string, content Content) error {
	if d.WAAPI.APIKey == "" {
		return errors.NotValidf("whatsapp sender: missing API key")
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                phoneNumber,
		"type":              "text",
		"text":              map[string]string{"body": content.Subject + "\n" + content.Message},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + d.WAAPI.APIKey,
	}
	url := fmt.Sprintf("https://graph.facebook.com/v21.0/%s/messages", d.WAAPI.From)
	return d.postJSON(ctx, url, headers, payload)
}

func (d *Dispatcher) postJSON(ctx context.Context, url string, headers map[string]string, payload any) error {
	body, err := utils.Serialize(payload)
	if err != nil {
		return errors.Trace(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return types.NewProviderError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		log.Errorf("notification endpoint %s: status %d, body: %s", url, resp.StatusCode, string(respBody))
		return types.NewProviderErrorf(url, "notification API status %d", resp.StatusCode)
	}
	return nil
}
