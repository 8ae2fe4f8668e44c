package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"persona_studio/logger"
)

const defaultBaseURL = "https://api.weixin.qq.com"

const (
	titleLimit  = 64
	digestLimit = 120
)

// Credentials holds the 公众号 app settings needed to create drafts.
type Credentials struct {
	AppID     string
	AppSecret string
	CoverPath string
	Author    string
}

// Article describes one generated post to be saved as a draft.
type Article struct {
	Markdown string
	Title    string
	Digest   string
}

type apiError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

type accessTokenResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	apiError
}

type mediaResp struct {
	MediaID string `json:"media_id"`
	apiError
}

type draftArticle struct {
	Title              string `json:"title"`
	Author             string `json:"author"`
	Digest             string `json:"digest"`
	Content            string `json:"content"`
	ThumbMediaID       string `json:"thumb_media_id"`
	NeedOpenComment    int    `json:"need_open_comment"`
	OnlyFansCanComment int    `json:"only_fans_can_comment"`
}

// Publisher saves generated posts as 公众号 drafts.
type Publisher struct {
	creds   Credentials
	client  *http.Client
	baseURL string
	log     *logger.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	now         func() time.Time
}

// Option customizes a Publisher.
type Option func(*Publisher)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) {
		if c != nil {
			p.client = c
		}
	}
}

// WithBaseURL points the publisher at another API host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(p *Publisher) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.log = l
		}
	}
}

// New validates credentials. The access token is fetched lazily on first use.
func New(creds Credentials, opts ...Option) (*Publisher, error) {
	if creds.AppID == "" || creds.AppSecret == "" {
		return nil, errors.New("publisher: app_id and app_secret are required")
	}
	if creds.CoverPath == "" {
		return nil, errors.New("publisher: cover_path is required")
	}
	p := &Publisher{
		creds:   creds,
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: defaultBaseURL,
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.log = p.log.With("component", "publisher")
	return p, nil
}

// PublishDraft renders the article for 公众号, uploads the cover image and
// creates a draft. It returns the draft media_id.
func (p *Publisher) PublishDraft(ctx context.Context, art Article) (string, error) {
	if strings.TrimSpace(art.Markdown) == "" {
		return "", errors.New("publisher: article content is empty")
	}
	title := strings.TrimSpace(art.Title)
	if title == "" {
		title = TitleFromMarkdown(art.Markdown, titleLimit)
	}
	digest := truncateRunes(strings.TrimSpace(art.Digest), digestLimit)

	contentHTML, err := RenderWeChatHTML(art.Markdown)
	if err != nil {
		return "", fmt.Errorf("publisher: render markdown: %w", err)
	}

	token, err := p.token(ctx)
	if err != nil {
		return "", err
	}
	thumbID, err := p.uploadCover(ctx, token)
	if err != nil {
		return "", err
	}
	p.log.Info("cover uploaded", "path", p.creds.CoverPath, "media_id", thumbID)

	mediaID, err := p.addDraft(ctx, token, draftArticle{
		Title:        title,
		Author:       p.creds.Author,
		Digest:       digest,
		Content:      contentHTML,
		ThumbMediaID: thumbID,
	})
	if err != nil {
		return "", err
	}
	p.log.Info("draft created", "media_id", mediaID, "title", title)
	return mediaID, nil
}

func (p *Publisher) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessToken != "" && p.now().Before(p.expiresAt) {
		return p.accessToken, nil
	}

	q := url.Values{}
	q.Set("grant_type", "client_credential")
	q.Set("appid", p.creds.AppID)
	q.Set("secret", p.creds.AppSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/cgi-bin/token?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	var data accessTokenResp
	if err := p.do(req, &data); err != nil {
		return "", fmt.Errorf("publisher: access token: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("publisher: failed to get access_token: %d %s", data.ErrCode, data.ErrMsg)
	}
	ttl := time.Duration(data.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	p.accessToken = data.AccessToken
	// 提前一分钟刷新
	p.expiresAt = p.now().Add(ttl - time.Minute)
	return p.accessToken, nil
}

func (p *Publisher) uploadCover(ctx context.Context, token string) (string, error) {
	file, err := os.Open(p.creds.CoverPath)
	if err != nil {
		return "", fmt.Errorf("publisher: open cover: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(p.creds.CoverPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("access_token", token)
	q.Set("type", "image")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/cgi-bin/material/add_material?"+q.Encode(), &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var data mediaResp
	if err := p.do(req, &data); err != nil {
		return "", fmt.Errorf("publisher: upload cover: %w", err)
	}
	if data.MediaID == "" {
		return "", fmt.Errorf("publisher: failed to upload cover: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.MediaID, nil
}

func (p *Publisher) addDraft(ctx context.Context, token string, art draftArticle) (string, error) {
	payload, err := json.Marshal(map[string][]draftArticle{"articles": {art}})
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("access_token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/cgi-bin/draft/add?"+q.Encode(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var data mediaResp
	if err := p.do(req, &data); err != nil {
		return "", fmt.Errorf("publisher: add draft: %w", err)
	}
	if data.MediaID == "" {
		return "", fmt.Errorf("publisher: failed to add draft: %d %s", data.ErrCode, data.ErrMsg)
	}
	return data.MediaID, nil
}

func (p *Publisher) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
