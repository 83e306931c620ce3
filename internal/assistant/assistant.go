// Package assistant talks to the backend's OpenAI-compatible
// chat-completions surface on behalf of the chat views.
package assistant

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/podline/podline/internal/chat"
)

// Completer produces an assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message) (string, error)
}

// Titler names a session from its first user message. Title never
// fails; implementations fall back to a truncation of the message.
// Chat views type-assert their Completer for it after the first
// exchange.
type Titler interface {
	Title(ctx context.Context, firstMessage string) string
}

const systemPrompt = `You are the show assistant for a podcast site. Answer questions about
episodes, show notes, and published files. Be concise. If you don't know,
say so instead of guessing.`

// Client is a Completer backed by the backend gateway, which exposes an
// OpenAI-compatible /v1/chat/completions endpoint.
type Client struct {
	client *openai.Client
	model  string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the backend API base, e.g. "https://api.example.com".
	// The OpenAI-compatible surface lives under its /v1 prefix.
	BaseURL string
	// Token authenticates the user with the backend. May be empty for
	// anonymous chat.
	Token string
	// Model names the chat model the backend should serve.
	Model string
}

// NewClient creates a Client against the backend's completion surface.
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.Token)
	cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/") + "/v1"
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}
}

func (c *Client) Complete(ctx context.Context, messages []chat.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Title asks the model for a short session title based on the first user
// message. Falls back to a truncation of the message on any failure, so
// callers never need to handle an error.
func (c *Client) Title(ctx context.Context, firstMessage string) string {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: 20,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "Summarize the user's message as a chat title of at most five words. Reply with the title only.",
			},
			{Role: openai.ChatMessageRoleUser, Content: firstMessage},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		return fallbackTitle(firstMessage)
	}
	title := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`)
	if title == "" {
		return fallbackTitle(firstMessage)
	}
	return title
}

func fallbackTitle(message string) string {
	title := strings.ReplaceAll(strings.TrimSpace(message), "\n", " ")
	const max = 60
	if r := []rune(title); len(r) > max {
		title = strings.TrimSpace(string(r[:max])) + "…"
	}
	return title
}
