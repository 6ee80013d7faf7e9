// ABOUTME: Keycloak Admin REST directory backend
// ABOUTME: Authenticates with OAuth2 client credentials or password grant and manages realm users

package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultKeycloakHTTPTimeout = 30 * time.Second

// KeycloakConfig contains configuration for KeycloakDirectory.
type KeycloakConfig struct {
	// BaseURL is the Keycloak server URL (e.g. http://localhost:8090).
	BaseURL string

	// Realm holds the managed users.
	Realm string

	// AdminRealm is the realm the admin client authenticates against. Defaults to Realm.
	AdminRealm string

	// ClientID is the OAuth2 client ID (usually "admin-cli").
	ClientID string

	// ClientSecret selects the client_credentials grant. If empty, the password grant is used.
	ClientSecret string

	Username string
	Password string

	// HTTPClient is an optional base HTTP client.
	HTTPClient *http.Client
}

// KeycloakDirectory implements Client against the Keycloak Admin REST API.
// Keycloak has no display name field; it is stored as firstName.
type KeycloakDirectory struct {
	baseURL string
	realm   string
	http    *http.Client
	tokens  *TokenMinter
	logger  *slog.Logger
}

// keycloakUser is the subset of UserRepresentation the gateway writes.
type keycloakUser struct {
	Username    string               `json:"username,omitempty"`
	Email       *string              `json:"email,omitempty"`
	FirstName   *string              `json:"firstName,omitempty"`
	Enabled     *bool                `json:"enabled,omitempty"`
	Credentials []keycloakCredential `json:"credentials,omitempty"`
}

type keycloakCredential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// NewKeycloakDirectory creates a Keycloak-backed directory.
// Admin tokens are fetched lazily and cached until shortly before expiry.
func NewKeycloakDirectory(cfg KeycloakConfig, tokens *TokenMinter, logger *slog.Logger) (*KeycloakDirectory, error) {
	if cfg.BaseURL == "" || cfg.Realm == "" {
		return nil, errors.New("keycloak base URL and realm are required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("keycloak client ID is required")
	}
	if tokens == nil {
		return nil, errors.New("token minter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	adminRealm := cfg.AdminRealm
	if adminRealm == "" {
		adminRealm = cfg.Realm
	}
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", baseURL, url.PathEscape(adminRealm))

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: defaultKeycloakHTTPTimeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	var ts oauth2.TokenSource
	if cfg.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		ts = cc.TokenSource(ctx)
	} else {
		ts = oauth2.ReuseTokenSource(nil, &passwordTokenSource{
			ctx: ctx,
			config: &oauth2.Config{
				ClientID: cfg.ClientID,
				Endpoint: oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
			},
			username: cfg.Username,
			password: cfg.Password,
		})
	}

	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = base.Timeout

	return &KeycloakDirectory{
		baseURL: baseURL,
		realm:   cfg.Realm,
		http:    httpClient,
		tokens:  tokens,
		logger:  logger.With("component", "directory", "driver", "keycloak"),
	}, nil
}

// passwordTokenSource fetches admin tokens with the resource owner password grant.
type passwordTokenSource struct {
	ctx      context.Context
	config   *oauth2.Config
	username string
	password string
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	return s.config.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

// IssueToken mints a custom token locally. Keycloak is not contacted.
func (k *KeycloakDirectory) IssueToken(ctx context.Context, userID string, claims map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return k.tokens.Mint(userID, claims)
}

// CreateAccount creates an enabled realm user with a permanent password.
func (k *KeycloakDirectory) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	enabled := true
	user := keycloakUser{
		Username:  email,
		Email:     &email,
		FirstName: &displayName,
		Enabled:   &enabled,
		Credentials: []keycloakCredential{
			{Type: "password", Value: password, Temporary: false},
		},
	}

	resp, err := k.do(ctx, http.MethodPost, k.usersURL(""), user)
	if err != nil {
		return "", fmt.Errorf("create user request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", statusError("create user", resp)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("create user response has no Location header")
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing Location header: %w", err)
	}
	uid := path.Base(locURL.Path)

	k.logger.Debug("created account", "uid", uid)
	return uid, nil
}

// UpdateAccount sends a partial user representation with only the non-nil fields.
func (k *KeycloakDirectory) UpdateAccount(ctx context.Context, userID string, update AccountUpdate) error {
	if update.Empty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidAccount)
	}
	if userID == "" {
		return ErrAccountNotFound
	}

	user := keycloakUser{
		Email:     update.Email,
		FirstName: update.DisplayName,
	}

	resp, err := k.do(ctx, http.MethodPut, k.usersURL(userID), user)
	if err != nil {
		return fmt.Errorf("update user request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError("update user", resp)
	}
	return nil
}

// DeleteAccount deletes the realm user.
func (k *KeycloakDirectory) DeleteAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrAccountNotFound
	}

	resp, err := k.do(ctx, http.MethodDelete, k.usersURL(userID), nil)
	if err != nil {
		return fmt.Errorf("delete user request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError("delete user", resp)
	}
	return nil
}

// Ping fetches the managed realm, which exercises admin authentication.
func (k *KeycloakDirectory) Ping(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/admin/realms/%s", k.baseURL, url.PathEscape(k.realm))
	resp, err := k.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("realm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("get realm", resp)
	}
	return nil
}

func (k *KeycloakDirectory) usersURL(userID string) string {
	u := fmt.Sprintf("%s/admin/realms/%s/users", k.baseURL, url.PathEscape(k.realm))
	if userID != "" {
		u += "/" + url.PathEscape(userID)
	}
	return u
}

func (k *KeycloakDirectory) do(ctx context.Context, method, reqURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return k.http.Do(req)
}

// statusError maps a Keycloak error response onto the directory sentinels.
func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrAccountNotFound
	case http.StatusConflict:
		return ErrEmailExists
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidAccount, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
	}
}
