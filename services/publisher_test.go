package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"salonsync-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphServer fakes the Instagram Graph API and records form posts
type graphServer struct {
	mu        sync.Mutex
	forms     map[string][]map[string]string
	failures  int32
	errStatus int
	failPath  string
}

func newGraphServer(t *testing.T) (*graphServer, *httptest.Server) {
	g := &graphServer{forms: map[string][]map[string]string{}}
	var containers int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.failPath == "" || g.failPath == r.URL.Path {
			if atomic.AddInt32(&g.failures, -1) >= 0 {
				w.WriteHeader(g.errStatus)
				w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
				return
			}
		}

		require.NoError(t, r.ParseForm())
		form := map[string]string{}
		for k := range r.Form {
			form[k] = r.Form.Get(k)
		}
		g.mu.Lock()
		g.forms[r.URL.Path] = append(g.forms[r.URL.Path], form)
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/acct1/media":
			n := atomic.AddInt32(&containers, 1)
			json.NewEncoder(w).Encode(map[string]string{"id": "container" + string(rune('0'+n))})
		case r.URL.Path == "/acct1/media_publish":
			json.NewEncoder(w).Encode(map[string]string{"id": "1789"})
		case r.URL.Path == "/1789/insights":
			w.Write([]byte(`{"data":[{"name":"reach","values":[{"value":900}]},{"name":"impressions","values":[{"value":1200}]},{"name":"saved","values":[{"value":7}]},{"name":"shares","values":[]}]}`))
		case r.URL.Path == "/1789" && r.Form.Get("fields") == "permalink":
			json.NewEncoder(w).Encode(map[string]string{"permalink": "https://instagram.com/p/abc"})
		case r.URL.Path == "/1789":
			w.Write([]byte(`{"like_count":42,"comments_count":5}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *graphServer) posted(path string) []map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.forms[path]
}

func connectedSalon() *models.Salon {
	return &models.Salon{InstagramAccountID: "acct1", InstagramAccessToken: "tok"}
}

func imagePost(urls ...string) *models.SocialPost {
	post := &models.SocialPost{Platform: models.PlatformInstagram, Caption: "Fresh balayage", Hashtags: models.StringList{"balayage"}}
	for _, u := range urls {
		post.MediaURLs = append(post.MediaURLs, map[string]interface{}{"url": u})
	}
	return post
}

func TestInstagramPublish(t *testing.T) {
	g, srv := newGraphServer(t)
	p := NewInstagramPublisher(srv.URL, srv.Client())

	result, err := p.Publish(context.Background(), connectedSalon(), imagePost("https://cdn/after.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "1789", result.PostID)
	assert.Equal(t, "https://instagram.com/p/abc", result.URL)

	media := g.posted("/acct1/media")
	require.Len(t, media, 1)
	assert.Equal(t, "https://cdn/after.jpg", media[0]["image_url"])
	assert.Equal(t, "Fresh balayage\n\n#balayage", media[0]["caption"])
	assert.Equal(t, "tok", media[0]["access_token"])

	publish := g.posted("/acct1/media_publish")
	require.Len(t, publish, 1)
	assert.Equal(t, "container1", publish[0]["creation_id"])
}

func TestInstagramPublishCarousel(t *testing.T) {
	g, srv := newGraphServer(t)
	p := NewInstagramPublisher(srv.URL, srv.Client())

	post := imagePost("https://cdn/before.jpg", "https://cdn/after.jpg")
	post.IsCarousel = true

	_, err := p.Publish(context.Background(), connectedSalon(), post)
	require.NoError(t, err)

	media := g.posted("/acct1/media")
	require.Len(t, media, 3)
	assert.Equal(t, "true", media[0]["is_carousel_item"])
	assert.Equal(t, "CAROUSEL", media[2]["media_type"])
	assert.Equal(t, "container1,container2", media[2]["children"])
	assert.Equal(t, "container3", g.posted("/acct1/media_publish")[0]["creation_id"])
}

func TestInstagramRetriesServerErrors(t *testing.T) {
	g, srv := newGraphServer(t)
	g.failures, g.errStatus = 2, http.StatusBadGateway
	p := NewInstagramPublisher(srv.URL, srv.Client())

	result, err := p.Publish(context.Background(), connectedSalon(), imagePost("https://cdn/after.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "1789", result.PostID)
}

func TestInstagramPublishIsNotRetried(t *testing.T) {
	g, srv := newGraphServer(t)
	g.failures, g.errStatus, g.failPath = 1, http.StatusBadGateway, "/acct1/media_publish"
	p := NewInstagramPublisher(srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), connectedSalon(), imagePost("https://cdn/after.jpg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(502)")
	assert.Len(t, g.posted("/acct1/media"), 1)
	assert.Empty(t, g.posted("/acct1/media_publish"))
	assert.Equal(t, int32(0), atomic.LoadInt32(&g.failures))
}

func TestInstagramClientErrorsArePermanent(t *testing.T) {
	g, srv := newGraphServer(t)
	g.failures, g.errStatus = 1, http.StatusBadRequest
	p := NewInstagramPublisher(srv.URL, srv.Client())

	_, err := p.Publish(context.Background(), connectedSalon(), imagePost("https://cdn/after.jpg"))
	require.Error(t, err)
	assert.Equal(t, "instagram api error (400): Invalid OAuth access token", err.Error())
	assert.Empty(t, g.posted("/acct1/media"))
}

func TestInstagramPublishRejects(t *testing.T) {
	p := NewInstagramPublisher("http://127.0.0.1:0", nil)
	ctx := context.Background()

	tiktok := imagePost("https://cdn/after.jpg")
	tiktok.Platform = models.PlatformTikTok
	_, err := p.Publish(ctx, connectedSalon(), tiktok)
	assert.ErrorIs(t, err, ErrPlatformUnsupported)

	_, err = p.Publish(ctx, &models.Salon{InstagramAccountID: "acct1"}, imagePost("https://cdn/after.jpg"))
	assert.ErrorIs(t, err, ErrAccountNotConnected)

	_, err = p.Publish(ctx, connectedSalon(), imagePost())
	assert.ErrorIs(t, err, ErrNoMedia)
}

func TestInstagramFetchMetrics(t *testing.T) {
	_, srv := newGraphServer(t)
	p := NewInstagramPublisher(srv.URL, srv.Client())

	post := imagePost("https://cdn/after.jpg")
	post.PlatformPostID = "1789"

	m, err := p.FetchMetrics(context.Background(), connectedSalon(), post)
	require.NoError(t, err)
	assert.Equal(t, models.Metrics{Likes: 42, Comments: 5, Reach: 900, Impressions: 1200, Saves: 7}, *m)

	_, err = p.FetchMetrics(context.Background(), connectedSalon(), imagePost())
	assert.True(t, strings.Contains(err.Error(), "not been published"))
}

func TestPublishPost(t *testing.T) {
	db := newTestDB(t)
	salon := seedSalon(t, db, nil)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		post := imagePost("https://cdn/after.jpg")
		post.SalonID = salon.ID
		post.Status = models.PostDraft
		require.NoError(t, db.Create(post).Error)

		pub := &stubPublisher{}
		require.NoError(t, PublishPost(ctx, db, pub, salon, post, time.Now()))

		var saved models.SocialPost
		require.NoError(t, db.First(&saved, "id = ?", post.ID).Error)
		assert.Equal(t, models.PostPublished, saved.Status)
		assert.Equal(t, "1789", saved.PlatformPostID)
		assert.Equal(t, "https://instagram.com/p/abc", saved.PlatformPostURL)
		assert.Equal(t, 1, saved.PublishAttempts)
		assert.NotNil(t, saved.PublishedAt)

		assert.ErrorIs(t, PublishPost(ctx, db, pub, salon, post, time.Now()), ErrPostNotPublishable)
		assert.Equal(t, 1, pub.calls)
	})

	t.Run("failure is recorded", func(t *testing.T) {
		post := imagePost("https://cdn/after.jpg")
		post.SalonID = salon.ID
		post.Status = models.PostScheduled
		require.NoError(t, db.Create(post).Error)

		err := PublishPost(ctx, db, &stubPublisher{err: ErrAccountNotConnected}, salon, post, time.Now())
		assert.ErrorIs(t, err, ErrAccountNotConnected)

		var saved models.SocialPost
		require.NoError(t, db.First(&saved, "id = ?", post.ID).Error)
		assert.Equal(t, models.PostFailed, saved.Status)
		assert.Equal(t, ErrAccountNotConnected.Error(), saved.ErrorMessage)
		assert.True(t, saved.CanRetry())
	})
}

func TestPublishPostRejectsStaleCopy(t *testing.T) {
	db := newTestDB(t)
	salon := seedSalon(t, db, nil)
	ctx := context.Background()

	post := imagePost("https://cdn/after.jpg")
	post.SalonID = salon.ID
	post.Status = models.PostScheduled
	require.NoError(t, db.Create(post).Error)

	var first, second models.SocialPost
	require.NoError(t, db.First(&first, "id = ?", post.ID).Error)
	require.NoError(t, db.First(&second, "id = ?", post.ID).Error)

	pub := &stubPublisher{}
	require.NoError(t, PublishPost(ctx, db, pub, salon, &first, time.Now()))
	assert.ErrorIs(t, PublishPost(ctx, db, pub, salon, &second, time.Now()), ErrPostNotPublishable)
	assert.Equal(t, 1, pub.calls)

	var saved models.SocialPost
	require.NoError(t, db.First(&saved, "id = ?", post.ID).Error)
	assert.Equal(t, models.PostPublished, saved.Status)
	assert.Equal(t, 1, saved.PublishAttempts)
}

func TestPublishPostSkipsClaimedPost(t *testing.T) {
	db := newTestDB(t)
	salon := seedSalon(t, db, nil)

	post := imagePost("https://cdn/after.jpg")
	post.SalonID = salon.ID
	post.Status = models.PostScheduled
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Model(&models.SocialPost{}).Where("id = ?", post.ID).
		Update("status", models.PostPublishing).Error)

	pub := &stubPublisher{}
	err := PublishPost(context.Background(), db, pub, salon, post, time.Now())
	assert.ErrorIs(t, err, ErrPostNotPublishable)
	assert.Zero(t, pub.calls)
}
