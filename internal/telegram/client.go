package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client speaks the Bot API sendMessage contract and nothing else.
type Client struct {
	apiBase    string
	token      string
	httpClient *http.Client
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func New(apiBase, token string, timeout time.Duration) *Client {
	return &Client{
		apiBase:    apiBase,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SendMessage posts a Markdown message to one chat. Any transport failure or
// non-ok API answer comes back as an error; retry policy belongs to the
// caller.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var api apiResponse
	_ = json.Unmarshal(body, &api)
	if resp.StatusCode != http.StatusOK || !api.OK {
		desc := api.Description
		if desc == "" {
			desc = string(body)
		}
		return fmt.Errorf("telegram sendMessage status %d: %s", resp.StatusCode, desc)
	}
	return nil
}
