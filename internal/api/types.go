package api

import "time"

// Episode is one podcast episode as returned by the backend.
type Episode struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"` // show notes, markdown
	AudioURL    string    `json:"audio_url"`
	Duration    int       `json:"duration_seconds"`
	PublishedAt time.Time `json:"published_at"`
}

// Feed is the podcast feed metadata.
type Feed struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Author       string `json:"author"`
	ImageURL     string `json:"image_url"`
	EpisodeCount int    `json:"episode_count"`
}

// FileEntry describes one object in the file gallery.
type FileEntry struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DownloadTicket is a short-lived signed URL for fetching a file.
type DownloadTicket struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StorageInfo describes the backing storage container.
type StorageInfo struct {
	Bucket     string `json:"bucket"`
	FileCount  int    `json:"file_count"`
	TotalBytes int64  `json:"total_bytes"`
}

// CacheStats reports the backend's cache state.
type CacheStats struct {
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hit_rate"`
	SizeBytes int64   `json:"size_bytes"`
}

// Health is the backend health check response.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime_seconds"`
}

// ChatMessage is the wire form of one chat message.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is the wire form of one chat session, as stored by the
// backend's chat-history endpoints.
type ChatSession struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Messages    []ChatMessage `json:"messages"`
	OwnerUserID string        `json:"owner_user_id"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
