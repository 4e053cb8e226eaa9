package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"aftersales/internal/notify"
)

// Channel delivers notifications through an HTTP SMS gateway. The gateway
// contract is a form POST with apikey/linenumber/receptor/message fields and
// a JSON {"success": bool, "message": string} response.
type Channel struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	lineNumber string
}

func New(httpClient *http.Client, apiURL, apiKey, lineNumber string) (*Channel, error) {
	if apiURL == "" || apiKey == "" || lineNumber == "" {
		return nil, fmt.Errorf("sms gateway url, api key and line number are required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Channel{
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
		lineNumber: lineNumber,
	}, nil
}

func (c *Channel) Type() notify.ChannelType {
	return notify.ChannelSMS
}

func (c *Channel) Send(ctx context.Context, recipient string, msg notify.Message) error {
	form := url.Values{
		"apikey":     {c.apiKey},
		"linenumber": {c.lineNumber},
		"receptor":   {recipient},
		"message":    {msg.Body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if !result.Success {
		if result.Message == "" {
			result.Message = "unknown gateway error"
		}
		return fmt.Errorf("sms gateway rejected message: %s", result.Message)
	}
	return nil
}
