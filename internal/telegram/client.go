package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the Telegram Bot API. Long polls and sends go through
// separate HTTP clients: getUpdates is safe to repeat, a send is not.
type Client struct {
	poll   *resty.Client
	send   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client for token against apiURL
// (normally https://api.telegram.org).
func NewClient(apiURL, token string, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(apiURL, "/") + "/bot" + token

	poll := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(90*time.Second). // long polling holds requests open
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "application/json")

	send := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &Client{poll: poll, send: send, logger: logger}
}

// call posts a JSON body to method and decodes the result into out (if non-nil).
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	return c.post(ctx, c.send, method, body, out)
}

func (c *Client) post(ctx context.Context, hc *resty.Client, method string, body any, out any) error {
	var envelope apiResponse
	resp, err := hc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&envelope).
		SetError(&envelope).
		Post("/" + method)
	return c.finish(method, resp, err, &envelope, out)
}

func (c *Client) finish(method string, resp *resty.Response, err error, envelope *apiResponse, out any) error {
	if err != nil {
		c.logger.Debug("Telegram API call failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("failed to call telegram %s: %w", method, err)
	}
	if !envelope.OK {
		code := envelope.ErrorCode
		if code == 0 {
			code = resp.StatusCode()
		}
		return &APIError{Method: method, Code: code, Description: envelope.Description}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode telegram %s result: %w", method, err)
		}
	}
	return nil
}

// GetUpdates long-polls for updates after offset, waiting up to timeout seconds.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	var updates []Update
	err := c.post(ctx, c.poll, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message"},
	}, &updates)
	return updates, err
}

// SendMessage sends text; markup may be a *ReplyKeyboardMarkup,
// *ReplyKeyboardRemove or nil.
func (c *Client) SendMessage(ctx context.Context, chatID string, text string, markup any) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		body["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", body, nil)
}

// SendPhoto re-sends an already uploaded photo by file id.
func (c *Client) SendPhoto(ctx context.Context, chatID, fileID, caption string) error {
	body := map[string]any{
		"chat_id": chatID,
		"photo":   fileID,
	}
	if caption != "" {
		body["caption"] = caption
	}
	return c.call(ctx, "sendPhoto", body, nil)
}

// SendVideo re-sends an already uploaded video by file id.
func (c *Client) SendVideo(ctx context.Context, chatID, fileID string) error {
	return c.call(ctx, "sendVideo", map[string]any{
		"chat_id": chatID,
		"video":   fileID,
	}, nil)
}

// UploadVideo uploads a local video file as multipart form data.
func (c *Client) UploadVideo(ctx context.Context, chatID, path string) error {
	var envelope apiResponse
	resp, err := c.send.R().
		SetContext(ctx).
		SetFormData(map[string]string{"chat_id": chatID}).
		SetFile("video", path).
		SetResult(&envelope).
		SetError(&envelope).
		Post("/sendVideo")
	return c.finish("sendVideo", resp, err, &envelope, nil)
}

// SetWebhook points Telegram at url; secret is echoed back in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	body := map[string]any{
		"url":             url,
		"allowed_updates": []string{"message"},
	}
	if secret != "" {
		body["secret_token"] = secret
	}
	return c.call(ctx, "setWebhook", body, nil)
}

// DeleteWebhook switches the bot back to getUpdates delivery.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{}, nil)
}
