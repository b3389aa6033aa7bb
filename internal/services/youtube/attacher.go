package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DefaultAPIBaseURL is the Data API host root. The generated client
// appends the youtube/v3/ resource paths itself.
const DefaultAPIBaseURL = "https://youtube.googleapis.com/"

// PlaylistAttacher implements upload.Attacher by inserting playlist items.
type PlaylistAttacher struct {
	service *ytapi.Service
}

// NewPlaylistAttacher builds the generated API client over an authorized
// HTTP client. An empty baseURL uses the public endpoint.
func NewPlaylistAttacher(ctx context.Context, client *http.Client, baseURL string) (*PlaylistAttacher, error) {
	if client == nil {
		return nil, errors.New("youtube attacher: http client required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	service, err := ytapi.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(baseURL))
	if err != nil {
		return nil, fmt.Errorf("youtube attacher: create service: %w", err)
	}
	return &PlaylistAttacher{service: service}, nil
}

// Attach adds videoID to playlistID. Errors are returned unchanged so the
// caller sees the API status and body.
func (a *PlaylistAttacher) Attach(ctx context.Context, videoID, playlistID string) error {
	item := &ytapi.PlaylistItem{
		Snippet: &ytapi.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &ytapi.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}
	_, err := a.service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	return err
}

// ChannelTitle returns the title of the authorized channel. It is used to
// confirm credentials after the consent flow and by doctor.
func (a *PlaylistAttacher) ChannelTitle(ctx context.Context) (string, error) {
	resp, err := a.service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", errors.New("youtube: no channel for the authorized account")
	}
	return resp.Items[0].Snippet.Title, nil
}
