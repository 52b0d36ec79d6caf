package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/satis-shop/satis-api/config"
)

// Auth0UserInfo is the subset of the /userinfo response used to create customers
type Auth0UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserInfoFetcher resolves an access token into the caller's profile
type UserInfoFetcher interface {
	GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error)
}

// Auth0Service calls the Auth0 authentication API
type Auth0Service struct {
	baseURL    string
	httpClient *http.Client
}

var userInfoFetcher UserInfoFetcher

// NewAuth0Service creates an Auth0 client for cfg.Auth0Domain.
// A domain with a scheme is used as-is, which lets tests point it at httptest servers.
func NewAuth0Service(cfg *config.Config) *Auth0Service {
	base := cfg.Auth0Domain
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &Auth0Service{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetUserInfoFetcher returns the configured fetcher, defaulting to Auth0 for the loaded config
func GetUserInfoFetcher() UserInfoFetcher {
	if userInfoFetcher == nil {
		userInfoFetcher = NewAuth0Service(config.GetConfig())
	}
	return userInfoFetcher
}

// SetUserInfoFetcher sets the fetcher (primarily for testing)
func SetUserInfoFetcher(f UserInfoFetcher) {
	userInfoFetcher = f
}

// GetUserInfo fetches the token owner's profile from /userinfo
func (s *Auth0Service) GetUserInfo(ctx context.Context, accessToken string) (*Auth0UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var info Auth0UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	return &info, nil
}
