package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/accountdesk/accountdesk/pkg/logger"
	"github.com/accountdesk/accountdesk/pkg/metrics"
)

const defaultTokenEndpoint = "https://securetoken.googleapis.com/v1/token"

// ToolkitConfig configures a ToolkitProvider.
type ToolkitConfig struct {
	APIKey string
	// Endpoint overrides the relying-party base URL (emulator, tests).
	Endpoint      string
	TokenEndpoint string
	ContinueURL   string
	HTTPClient    *http.Client
}

// Revoker is the part of the Admin SDK auth client used on sign-out.
// *auth.Client satisfies it.
type Revoker interface {
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

var _ Revoker = (*auth.Client)(nil)

// ToolkitProvider talks to the Identity Toolkit relying-party API with a web
// API key, the same calls the browser SDK makes.
type ToolkitProvider struct {
	svc           *identitytoolkit.Service
	apiKey        string
	tokenEndpoint string
	continueURL   string
	httpClient    *http.Client
	revoker       Revoker
}

// NewToolkitProvider builds the API client. revoker may be nil, in which case
// SignOut only drops local state.
func NewToolkitProvider(ctx context.Context, cfg ToolkitConfig, revoker Revoker) (*ToolkitProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("identity: API key is required")
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	hc := cfg.HTTPClient
	if hc != nil {
		// a caller-supplied client bypasses the key transport; used against emulators
		opts = append(opts, option.WithHTTPClient(hc))
	} else {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identity: new service: %w", err)
	}
	te := cfg.TokenEndpoint
	if te == "" {
		te = defaultTokenEndpoint
	}
	return &ToolkitProvider{
		svc:           svc,
		apiKey:        cfg.APIKey,
		tokenEndpoint: te,
		continueURL:   cfg.ContinueURL,
		httpClient:    hc,
		revoker:       revoker,
	}, nil
}

func observe(call string, start time.Time) {
	metrics.ProviderLatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

func (p *ToolkitProvider) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	defer observe("signup", time.Now())
	resp, err := p.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fromAPIError("signupNewUser", err)
	}
	return &Credentials{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    ExpiresAt(resp.IdToken, resp.ExpiresIn),
	}, nil
}

func (p *ToolkitProvider) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	defer observe("signin", time.Now())
	resp, err := p.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fromAPIError("verifyPassword", err)
	}
	return &Credentials{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    ExpiresAt(resp.IdToken, resp.ExpiresIn),
	}, nil
}

func (p *ToolkitProvider) Lookup(ctx context.Context, idToken string) (*Account, error) {
	defer observe("lookup", time.Now())
	resp, err := p.svc.Relyingparty.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fromAPIError("getAccountInfo", err)
	}
	if len(resp.Users) == 0 {
		return nil, ErrInvalidSession
	}
	u := resp.Users[0]
	return &Account{
		UID:           u.LocalId,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoUrl,
		EmailVerified: u.EmailVerified,
		Disabled:      u.Disabled,
		CreatedAt:     millis(u.CreatedAt),
		LastLoginAt:   millis(u.LastLoginAt),
	}, nil
}

func (p *ToolkitProvider) SendEmailVerification(ctx context.Context, idToken string) error {
	defer observe("send_verification", time.Now())
	_, err := p.svc.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "VERIFY_EMAIL",
		IdToken:     idToken,
		ContinueUrl: p.continueURL,
	}).Context(ctx).Do()
	return fromAPIError("getOobConfirmationCode", err)
}

func (p *ToolkitProvider) UpdateProfile(ctx context.Context, idToken string, upd ProfileUpdate) error {
	defer observe("update_profile", time.Now())
	req := &identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{IdToken: idToken}
	if upd.DisplayName != nil {
		if *upd.DisplayName == "" {
			req.DeleteAttribute = append(req.DeleteAttribute, "DISPLAY_NAME")
		} else {
			req.DisplayName = *upd.DisplayName
		}
	}
	if upd.PhotoURL != nil {
		if *upd.PhotoURL == "" {
			req.DeleteAttribute = append(req.DeleteAttribute, "PHOTO_URL")
		} else {
			req.PhotoUrl = *upd.PhotoURL
		}
	}
	_, err := p.svc.Relyingparty.SetAccountInfo(req).Context(ctx).Do()
	return fromAPIError("setAccountInfo", err)
}

func (p *ToolkitProvider) DeleteAccount(ctx context.Context, idToken string) error {
	defer observe("delete_account", time.Now())
	_, err := p.svc.Relyingparty.DeleteAccount(&identitytoolkit.IdentitytoolkitRelyingpartyDeleteAccountRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	return fromAPIError("deleteAccount", err)
}

func (p *ToolkitProvider) SignOut(ctx context.Context, uid string) error {
	if p.revoker == nil {
		logger.Debugf("identity: no admin client, skipping refresh token revocation for %s", uid)
		return nil
	}
	defer observe("revoke", time.Now())
	if err := p.revoker.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// refreshResponse is the Secure Token endpoint response; expires_in is a string.
type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type refreshError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Refresh exchanges a refresh token at the Secure Token endpoint.
func (p *ToolkitProvider) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	defer observe("refresh", time.Now())
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := p.tokenEndpoint + "?key=" + url.QueryEscape(p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("token endpoint: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var re refreshError
		if json.Unmarshal(body, &re) == nil && re.Error.Message != "" {
			return nil, Classify(resp.StatusCode, re.Error.Message)
		}
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	var rr refreshResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("token endpoint: decode: %w", err)
	}
	secs, _ := strconv.ParseInt(rr.ExpiresIn, 10, 64)
	return &Credentials{
		UID:          rr.UserID,
		IDToken:      rr.IDToken,
		RefreshToken: rr.RefreshToken,
		ExpiresAt:    ExpiresAt(rr.IDToken, secs),
	}, nil
}

func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
