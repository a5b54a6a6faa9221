package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	apierrors "github.com/yukikurage/foresy-api/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var (
	ErrOAuthNotConfigured      = apierrors.NewDomainError(apierrors.KindUnavailable, "oauth provider is not configured")
	ErrOAuthVerificationFailed = apierrors.NewDomainError(apierrors.KindUnauthorized, "oauth authorization could not be verified")
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"

	maxUserInfoBytes = 1 << 20
)

// IdentityVerifier turns a provider authorization code into the identity the
// provider vouches for.
type IdentityVerifier interface {
	AuthCodeURL(provider, state string) (string, error)
	Verify(ctx context.Context, provider, code string) (*OAuthPayload, error)
}

// OAuthClientConfig holds the credentials registered with one provider.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type oauthProvider struct {
	config    *oauth2.Config
	fetchUser func(ctx context.Context, client *http.Client) (*OAuthPayload, error)
}

// OAuth2Verifier runs the authorization code exchange with golang.org/x/oauth2
// and reads the profile from the provider's user endpoint.
type OAuth2Verifier struct {
	providers map[string]*oauthProvider
}

// NewOAuth2Verifier registers the providers that have a client id. Providers
// without credentials answer ErrOAuthNotConfigured.
func NewOAuth2Verifier(google, github OAuthClientConfig) *OAuth2Verifier {
	v := &OAuth2Verifier{providers: make(map[string]*oauthProvider)}
	if google.ClientID != "" {
		v.providers[ProviderGoogle] = &oauthProvider{
			config:    clientConfig(google, endpoints.Google, []string{"openid", "email", "profile"}),
			fetchUser: googleUser(googleUserInfoURL),
		}
	}
	if github.ClientID != "" {
		v.providers[ProviderGitHub] = &oauthProvider{
			config:    clientConfig(github, endpoints.GitHub, []string{"read:user", "user:email"}),
			fetchUser: githubUser(githubUserURL, githubEmailsURL),
		}
	}
	return v
}

func clientConfig(c OAuthClientConfig, endpoint oauth2.Endpoint, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// AuthCodeURL returns the provider consent URL carrying state.
func (v *OAuth2Verifier) AuthCodeURL(provider, state string) (string, error) {
	p, ok := v.providers[provider]
	if !ok {
		return "", ErrOAuthNotConfigured
	}
	return p.config.AuthCodeURL(state), nil
}

// Verify exchanges the code and fetches the user it belongs to.
func (v *OAuth2Verifier) Verify(ctx context.Context, provider, code string) (*OAuthPayload, error) {
	p, ok := v.providers[provider]
	if !ok {
		return nil, ErrOAuthNotConfigured
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, apierrors.Wrap(ErrOAuthVerificationFailed, "code exchange failed: %v", err)
	}

	payload, err := p.fetchUser(ctx, p.config.Client(ctx, token))
	if err != nil {
		return nil, apierrors.Wrap(ErrOAuthVerificationFailed, "%v", err)
	}
	payload.Provider = provider
	return payload, nil
}

func googleUser(userInfoURL string) func(context.Context, *http.Client) (*OAuthPayload, error) {
	return func(ctx context.Context, client *http.Client) (*OAuthPayload, error) {
		var info struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			Name          string `json:"name"`
			GivenName     string `json:"given_name"`
		}
		if err := getJSON(ctx, client, userInfoURL, &info); err != nil {
			return nil, err
		}

		payload := &OAuthPayload{UID: info.Sub, Name: info.Name, Nickname: info.GivenName}
		if info.EmailVerified {
			payload.Email = info.Email
		}
		return payload, nil
	}
}

func githubUser(userURL, emailsURL string) func(context.Context, *http.Client) (*OAuthPayload, error) {
	return func(ctx context.Context, client *http.Client) (*OAuthPayload, error) {
		var user struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Name  string `json:"name"`
		}
		if err := getJSON(ctx, client, userURL, &user); err != nil {
			return nil, err
		}
		if user.ID == 0 {
			return &OAuthPayload{}, nil
		}

		// The public profile email is not necessarily verified.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, emailsURL, &emails); err != nil {
			return nil, err
		}

		payload := &OAuthPayload{
			UID:      strconv.FormatInt(user.ID, 10),
			Name:     user.Name,
			Nickname: user.Login,
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				payload.Email = e.Email
				break
			}
		}
		return payload, nil
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("user endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return fmt.Errorf("failed to read user endpoint: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("user endpoint returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode user endpoint: %w", err)
	}
	return nil
}
