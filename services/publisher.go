// services/publisher.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salonsync-backend/models"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrPlatformUnsupported = errors.New("publishing to this platform is not supported yet")
	ErrAccountNotConnected = errors.New("salon has no connected Instagram account")
	ErrNoMedia             = errors.New("post has no media to publish")
)

// PublishResult identifies a post on the platform
type PublishResult struct {
	PostID string
	URL    string
}

// Publisher sends posts to a social platform and reads back engagement
type Publisher interface {
	Publish(ctx context.Context, salon *models.Salon, post *models.SocialPost) (*PublishResult, error)
	FetchMetrics(ctx context.Context, salon *models.Salon, post *models.SocialPost) (*models.Metrics, error)
}

// InstagramPublisher talks to the Instagram Graph API
type InstagramPublisher struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

func NewInstagramPublisher(baseURL string, httpClient *http.Client) *InstagramPublisher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &InstagramPublisher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		maxRetries: 3,
	}
}

type graphError struct {
	Status  int
	Message string
}

func (e *graphError) Error() string {
	return fmt.Sprintf("instagram api error (%d): %s", e.Status, e.Message)
}

func (p *InstagramPublisher) Publish(ctx context.Context, salon *models.Salon, post *models.SocialPost) (*PublishResult, error) {
	if post.Platform != models.PlatformInstagram && post.Platform != models.PlatformInstagramReels && post.Platform != models.PlatformInstagramStories {
		return nil, ErrPlatformUnsupported
	}
	if !salon.InstagramConnected() {
		return nil, ErrAccountNotConnected
	}
	urls := mediaURLs(post)
	if len(urls) == 0 {
		return nil, ErrNoMedia
	}

	account := salon.InstagramAccountID
	token := salon.InstagramAccessToken
	caption := post.FullCaption()

	var creationID string
	var err error
	if post.IsCarousel && len(urls) > 1 {
		creationID, err = p.createCarousel(ctx, account, token, urls, caption)
	} else {
		params := url.Values{"image_url": {urls[0]}, "caption": {caption}}
		switch post.Platform {
		case models.PlatformInstagramStories:
			params.Set("media_type", "STORIES")
		case models.PlatformInstagramReels:
			params = url.Values{"video_url": {urls[0]}, "caption": {caption}, "media_type": {"REELS"}}
		}
		creationID, err = p.createContainer(ctx, account, token, params)
	}
	if err != nil {
		return nil, err
	}

	var published struct {
		ID string `json:"id"`
	}
	// media_publish is not idempotent and is never retried
	if err := p.request(ctx, http.MethodPost, account+"/media_publish", token, url.Values{"creation_id": {creationID}}, &published, 0); err != nil {
		return nil, err
	}

	var media struct {
		Permalink string `json:"permalink"`
	}
	if err := p.call(ctx, http.MethodGet, published.ID, token, url.Values{"fields": {"permalink"}}, &media); err != nil {
		media.Permalink = ""
	}

	return &PublishResult{PostID: published.ID, URL: media.Permalink}, nil
}

func (p *InstagramPublisher) createContainer(ctx context.Context, account, token string, params url.Values) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := p.call(ctx, http.MethodPost, account+"/media", token, params, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (p *InstagramPublisher) createCarousel(ctx context.Context, account, token string, urls []string, caption string) (string, error) {
	children := make([]string, 0, len(urls))
	for _, u := range urls {
		id, err := p.createContainer(ctx, account, token, url.Values{"image_url": {u}, "is_carousel_item": {"true"}})
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}
	return p.createContainer(ctx, account, token, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {caption},
	})
}

func (p *InstagramPublisher) FetchMetrics(ctx context.Context, salon *models.Salon, post *models.SocialPost) (*models.Metrics, error) {
	if !salon.InstagramConnected() {
		return nil, ErrAccountNotConnected
	}
	if post.PlatformPostID == "" {
		return nil, errors.New("post has not been published")
	}
	token := salon.InstagramAccessToken

	var fields struct {
		LikeCount     int `json:"like_count"`
		CommentsCount int `json:"comments_count"`
	}
	if err := p.call(ctx, http.MethodGet, post.PlatformPostID, token, url.Values{"fields": {"like_count,comments_count"}}, &fields); err != nil {
		return nil, err
	}

	var insights struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := p.call(ctx, http.MethodGet, post.PlatformPostID+"/insights", token, url.Values{"metric": {"impressions,reach,saved,shares"}}, &insights); err != nil {
		return nil, err
	}

	m := &models.Metrics{Likes: fields.LikeCount, Comments: fields.CommentsCount}
	for _, d := range insights.Data {
		if len(d.Values) == 0 {
			continue
		}
		v := d.Values[0].Value
		switch d.Name {
		case "impressions":
			m.Impressions = v
		case "reach":
			m.Reach = v
		case "saved":
			m.Saves = v
		case "shares":
			m.Shares = v
		}
	}
	return m, nil
}

// call performs a Graph API request, retrying 5xx and network failures with
// exponential backoff.
func (p *InstagramPublisher) call(ctx context.Context, method, path, token string, params url.Values, out interface{}) error {
	return p.request(ctx, method, path, token, params, out, p.maxRetries)
}

func (p *InstagramPublisher) request(ctx context.Context, method, path, token string, params url.Values, out interface{}, retries uint64) error {
	params = cloneValues(params)
	params.Set("access_token", token)
	endpoint := p.baseURL + "/" + strings.TrimLeft(path, "/")

	operation := func() error {
		var req *http.Request
		var err error
		if method == http.MethodGet {
			req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
			if req != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		}
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}

		if resp.StatusCode >= 300 {
			gerr := &graphError{Status: resp.StatusCode, Message: graphErrorMessage(body)}
			if resp.StatusCode >= 500 {
				return gerr
			}
			return backoff.Permanent(gerr)
		}

		if out != nil {
			if err := json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode instagram response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
}

func graphErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func mediaURLs(post *models.SocialPost) []string {
	var urls []string
	for _, m := range post.MediaURLs {
		if u, ok := m["url"].(string); ok && u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
