package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
)

// Episodes returns one page of the episode listing.
func (c *Client) Episodes(ctx context.Context, page, perPage int) ([]Episode, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	var episodes []Episode
	if err := c.get(ctx, "/api/episodes", q, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// Episode returns a single episode by id.
func (c *Client) Episode(ctx context.Context, id string) (*Episode, error) {
	var ep Episode
	if err := c.get(ctx, "/api/episodes/"+url.PathEscape(id), nil, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// Feed returns the podcast feed metadata.
func (c *Client) Feed(ctx context.Context) (*Feed, error) {
	var f Feed
	if err := c.get(ctx, "/api/feed", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Files lists gallery files, optionally under a prefix.
func (c *Client) Files(ctx context.Context, prefix string) ([]FileEntry, error) {
	q := url.Values{}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	var files []FileEntry
	if err := c.get(ctx, "/api/files", q, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// FileInfo returns metadata for a single gallery file.
func (c *Client) FileInfo(ctx context.Context, name string) (*FileEntry, error) {
	var f FileEntry
	if err := c.get(ctx, "/api/files/"+url.PathEscape(name), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FileDownloadURL asks the backend to issue a signed download URL.
func (c *Client) FileDownloadURL(ctx context.Context, name string) (*DownloadTicket, error) {
	var t DownloadTicket
	if err := c.get(ctx, "/api/files/"+url.PathEscape(name)+"/download-url", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DownloadFile streams the file behind a download ticket into w. The
// signed URL is fetched directly, outside the envelope protocol.
func (c *Client) DownloadFile(ctx context.Context, ticket *DownloadTicket, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ticket.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &Error{Kind: KindHTTP, Status: resp.StatusCode}
	}
	return io.Copy(w, resp.Body)
}

// StorageInfo returns backing storage container information.
func (c *Client) StorageInfo(ctx context.Context) (*StorageInfo, error) {
	var s StorageInfo
	if err := c.get(ctx, "/api/storage", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CacheStats returns the backend cache statistics.
func (c *Client) CacheStats(ctx context.Context) (*CacheStats, error) {
	var s CacheStats
	if err := c.get(ctx, "/api/cache/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CacheClear asks the backend to drop its cache.
func (c *Client) CacheClear(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/api/cache/clear", nil, nil, nil)
}

// Health performs a backend health check.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ChatHistory returns the chat sessions stored remotely for a user.
func (c *Client) ChatHistory(ctx context.Context, userID string) ([]ChatSession, error) {
	var sessions []ChatSession
	if err := c.get(ctx, "/api/chat/history/"+url.PathEscape(userID), nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SaveChatSession upserts one session into the user's remote history.
func (c *Client) SaveChatSession(ctx context.Context, userID string, session ChatSession) error {
	path := "/api/chat/history/" + url.PathEscape(userID) + "/" + url.PathEscape(session.ID)
	return c.request(ctx, http.MethodPut, path, nil, session, nil)
}

// DeleteChatSession removes one session from the user's remote history.
func (c *Client) DeleteChatSession(ctx context.Context, userID, sessionID string) error {
	path := "/api/chat/history/" + url.PathEscape(userID) + "/" + url.PathEscape(sessionID)
	return c.request(ctx, http.MethodDelete, path, nil, nil, nil)
}

// SaveTo downloads a ticket to the named local file.
func (c *Client) SaveTo(ctx context.Context, ticket *DownloadTicket, dest string, w io.Writer) (int64, error) {
	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}
	defer f.Close()
	out := io.Writer(f)
	if w != nil {
		out = io.MultiWriter(f, w)
	}
	return c.DownloadFile(ctx, ticket, out)
}
