package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/yandex"
)

const yandexInfoURL = "https://login.yandex.ru/info?format=json"

// YandexProvider implements OAuthProvider for Yandex ID.
type YandexProvider struct {
	Config  oauth2.Config
	InfoURL string
	// HTTPClient is used for the userinfo call and, through the context,
	// for the token exchange.
	HTTPClient *http.Client
}

func NewYandexProvider(clientID, clientSecret, redirectURL string) *YandexProvider {
	return &YandexProvider{
		Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     yandex.Endpoint,
			Scopes:       []string{"login:email", "login:info"},
		},
		InfoURL:    yandexInfoURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *YandexProvider) Name() string { return "yandex" }

func (p *YandexProvider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

type yandexInfo struct {
	ID           string `json:"id"`
	DefaultEmail string `json:"default_email"`
}

// Exchange trades the code for tokens and fetches the Yandex profile.
func (p *YandexProvider) Exchange(ctx context.Context, code string) (ExternalIdentity, error) {
	if p.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
	}
	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("yandex token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.InfoURL, nil)
	if err != nil {
		return ExternalIdentity{}, err
	}
	req.Header.Set("Authorization", "OAuth "+tok.AccessToken)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("yandex userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ExternalIdentity{}, fmt.Errorf("yandex userinfo: status %d: %s", resp.StatusCode, body)
	}

	var info yandexInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ExternalIdentity{}, fmt.Errorf("yandex userinfo decode: %w", err)
	}
	if info.ID == "" {
		return ExternalIdentity{}, fmt.Errorf("yandex userinfo: empty id")
	}

	id := ExternalIdentity{
		ProviderUserID: info.ID,
		Email:          info.DefaultEmail,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		id.ExpiresAt = &exp
	}
	return id, nil
}
