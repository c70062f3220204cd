package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APICourier delivers messages through a JSON sending API (Mailtrap-style
// endpoint). It builds the verification/reset links from the frontend base
// URL; the link's host and path are the frontend's concern, the token is ours.
type APICourier struct {
	apiURL          string
	apiKey          string
	fromEmail       string
	fromName        string
	frontendBaseURL string
	httpClient      *http.Client
}

func NewAPICourier(apiURL, apiKey, fromEmail, fromName, frontendBaseURL string) *APICourier {
	return &APICourier{
		apiURL:          apiURL,
		apiKey:          apiKey,
		fromEmail:       fromEmail,
		fromName:        fromName,
		frontendBaseURL: frontendBaseURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APICourier) link(msg Message) string {
	switch msg.Kind {
	case KindPasswordReset:
		return fmt.Sprintf("%s/reset-password?token=%s", c.frontendBaseURL, msg.Token)
	default:
		return fmt.Sprintf("%s/verify-email?token=%s", c.frontendBaseURL, msg.Token)
	}
}

func (c *APICourier) subjectAndBody(msg Message) (string, string) {
	link := c.link(msg)
	if msg.Kind == KindPasswordReset {
		return "Reset your password",
			fmt.Sprintf("A password reset was requested for your account. Follow the link to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this message.", link)
	}
	return "Verify your email address",
		fmt.Sprintf("Welcome! Confirm your email address by following the link:\n\n%s\n\nThe link expires shortly; request a new one from the sign-in page if needed.", link)
}

// Send performs one delivery attempt. Non-2xx API responses are errors so the
// dispatcher can retry them.
func (c *APICourier) Send(ctx context.Context, msg Message) error {
	subject, body := c.subjectAndBody(msg)

	reqBody := map[string]any{
		"from": map[string]string{
			"email": c.fromEmail,
			"name":  c.fromName,
		},
		"to": []map[string]string{
			{"email": msg.To},
		},
		"subject": subject,
		"text":    body,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling email request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail API status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
