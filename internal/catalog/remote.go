package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mediavault/internal/media"
	"mediavault/internal/services"
)

const (
	videosPath       = "videos"
	videoPathPrefix  = "video/"
	maxErrorBodySize = 64 << 10
)

// Messages returned for responses that carry no description.
const (
	MessageTokenExpired = "Your token is expired"
	MessageUnexpected   = "Something went Wrong"
)

// RemoteError reports a catalog request the server rejected or that never
// produced a response. Code is zero for transport failures.
type RemoteError struct {
	Code    int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Unwrap exposes both the network marker and the transport cause.
func (e *RemoteError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrNetwork, e.Err}
	}
	return []error{services.ErrNetwork}
}

// RemoteVideo is one entry of the server's video listing.
type RemoteVideo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type videoList struct {
	Data []RemoteVideo `json:"data"`
}

type describedResponse struct {
	ResponseDescription string `json:"responseDescription"`
}

// Client fetches the video catalog from the media server.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// NewClient returns a catalog client for baseURL, which must end with "/".
func NewClient(baseURL string, httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{baseURL: baseURL, http: httpClient, userAgent: userAgent}
}

// VideoURL returns the download URL for a remote video id.
func (c *Client) VideoURL(id int64) string {
	return fmt.Sprintf("%s%s%d", c.baseURL, videoPathPrefix, id)
}

// FetchVideos retrieves the remote video listing and converts it to items.
func (c *Client) FetchVideos(ctx context.Context) ([]media.Item, error) {
	if c.baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "fetch videos", "remote.base_url is not set", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+videosPath, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "fetch videos", "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCanceled, "catalog", "fetch videos", "request canceled", ctx.Err())
		}
		return nil, &RemoteError{Message: MessageUnexpected, Err: err}
	}
	defer resp.Body.Close()

	list, err := decodeResponse[videoList](resp)
	if err != nil {
		return nil, err
	}

	items := make([]media.Item, 0, len(list.Data))
	for _, video := range list.Data {
		if video.ID <= 0 {
			continue
		}
		items = append(items, media.Item{
			ID:        video.ID,
			Title:     video.Title,
			URL:       c.VideoURL(video.ID),
			Thumbnail: video.Thumbnail,
			Kind:      media.KindVideo,
		})
	}
	return items, nil
}

// decodeResponse maps the server's status codes to a result.
func decodeResponse[T any](resp *http.Response) (T, error) {
	var zero T
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var out T
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return zero, &RemoteError{Code: resp.StatusCode, Message: MessageUnexpected, Err: err}
		}
		return out, nil
	case http.StatusAccepted, http.StatusBadRequest:
		return zero, &RemoteError{Code: resp.StatusCode, Message: readDescription(resp.Body)}
	case http.StatusUnauthorized:
		return zero, &RemoteError{Code: resp.StatusCode, Message: MessageTokenExpired}
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return zero, &RemoteError{Code: resp.StatusCode, Message: fmt.Sprintf("Error Code %d", resp.StatusCode)}
	}
}

func readDescription(body io.Reader) string {
	var described describedResponse
	err := json.NewDecoder(io.LimitReader(body, maxErrorBodySize)).Decode(&described)
	if err != nil || strings.TrimSpace(described.ResponseDescription) == "" {
		return MessageUnexpected
	}
	return described.ResponseDescription
}

// IsTokenExpired reports whether err is the server's expired-token response.
func IsTokenExpired(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.Code == http.StatusUnauthorized
}
