// Package email sends transactional mail through a Postmark-compatible API.
// All sends are best-effort; callers log failures and move on.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	appName     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      "https://api.postmarkapp.com/email",
		appName:     "ChorePoint",
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type message struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendWelcome greets a newly registered user.
func (c *Client) SendWelcome(toEmail, name string) error {
	subject := fmt.Sprintf("Welcome to %s", c.appName)
	text := fmt.Sprintf("Hi %s,\n\nYour %s account is ready. Create your first chore and get the family started.", name, c.appName)
	html := fmt.Sprintf("<p>Hi %s,</p><p>Your %s account is ready. Create your first chore and get the family started.</p>", name, c.appName)
	return c.send(toEmail, subject, html, text)
}

// SendInvite carries a family's invite code to a prospective member.
func (c *Client) SendInvite(toEmail, familyName, inviteCode string) error {
	subject := fmt.Sprintf("You've been invited to %s on %s", familyName, c.appName)
	text := fmt.Sprintf("You've been invited to join %s.\n\nUse this code when registering: %s", familyName, inviteCode)
	html := fmt.Sprintf("<p>You've been invited to join %s.</p><p>Use this code when registering: <strong>%s</strong></p>", familyName, inviteCode)
	return c.send(toEmail, subject, html, text)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	body, err := json.Marshal(message{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
