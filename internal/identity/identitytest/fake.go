// Package identitytest provides an in-memory identity.Provider for tests.
package identitytest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/accountdesk/accountdesk/internal/identity"
)

type user struct {
	account  identity.Account
	password string
}

// Provider is a fake identity.Provider. ID tokens are "id-<uid>-<n>" and
// refresh tokens "refresh-<uid>". Failures maps a method name to the error
// that method returns.
type Provider struct {
	mu       sync.Mutex
	users    map[string]*user // by uid
	byEmail  map[string]string
	tokens   map[string]string // id token -> uid
	seq      int
	Calls    map[string]int
	Failures map[string]error
	TokenTTL time.Duration
	// SignUpWithoutToken makes SignUp return credentials with no ID token.
	SignUpWithoutToken bool
}

var _ identity.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{
		users:    map[string]*user{},
		byEmail:  map[string]string{},
		tokens:   map[string]string{},
		Calls:    map[string]int{},
		Failures: map[string]error{},
		TokenTTL: time.Hour,
	}
}

// Fail builds an error shaped like one the provider returns for code.
func Fail(code string) error {
	return identity.Classify(http.StatusBadRequest, code)
}

func (p *Provider) enter(method string) error {
	p.Calls[method]++
	return p.Failures[method]
}

// CallCount returns how many times method was called.
func (p *Provider) CallCount(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Calls[method]
}

// TotalCalls returns the number of calls to any method.
func (p *Provider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		n += c
	}
	return n
}

// AddUser seeds an account and returns its uid.
func (p *Provider) AddUser(email, password string, verified bool) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addUser(email, password, verified)
}

func (p *Provider) addUser(email, password string, verified bool) string {
	p.seq++
	uid := fmt.Sprintf("uid-%d", p.seq)
	p.users[uid] = &user{
		account: identity.Account{
			UID:           uid,
			Email:         email,
			EmailVerified: verified,
			CreatedAt:     time.Now().UTC(),
		},
		password: password,
	}
	p.byEmail[email] = uid
	return uid
}

// Account returns a copy of the stored account.
func (p *Provider) Account(uid string) (identity.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[uid]
	if !ok {
		return identity.Account{}, false
	}
	return u.account, true
}

// IssueToken mints a valid ID token for uid.
func (p *Provider) IssueToken(uid string) *identity.Credentials {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issue(uid)
}

func (p *Provider) issue(uid string) *identity.Credentials {
	p.seq++
	tok := fmt.Sprintf("id-%s-%d", uid, p.seq)
	p.tokens[tok] = uid
	u := p.users[uid]
	return &identity.Credentials{
		UID:          uid,
		Email:        u.account.Email,
		DisplayName:  u.account.DisplayName,
		IDToken:      tok,
		RefreshToken: "refresh-" + uid,
		ExpiresAt:    time.Now().UTC().Add(p.TokenTTL),
	}
}

func (p *Provider) userFor(idToken string) (*user, error) {
	uid, ok := p.tokens[idToken]
	if !ok {
		return nil, Fail("INVALID_ID_TOKEN")
	}
	u, ok := p.users[uid]
	if !ok {
		return nil, Fail("USER_NOT_FOUND")
	}
	return u, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*identity.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("SignUp"); err != nil {
		return nil, err
	}
	if _, ok := p.byEmail[email]; ok {
		return nil, Fail("EMAIL_EXISTS")
	}
	if len(password) < 6 {
		return nil, Fail("WEAK_PASSWORD : Password should be at least 6 characters")
	}
	creds := p.issue(p.addUser(email, password, false))
	if p.SignUpWithoutToken {
		creds.IDToken = ""
		creds.RefreshToken = ""
	}
	return creds, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*identity.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("SignIn"); err != nil {
		return nil, err
	}
	uid, ok := p.byEmail[email]
	if !ok || p.users[uid].password != password {
		return nil, Fail("INVALID_LOGIN_CREDENTIALS")
	}
	if p.users[uid].account.Disabled {
		return nil, Fail("USER_DISABLED : The user account has been disabled by an administrator.")
	}
	return p.issue(uid), nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*identity.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Refresh"); err != nil {
		return nil, err
	}
	for uid := range p.users {
		if "refresh-"+uid == refreshToken {
			return p.issue(uid), nil
		}
	}
	return nil, Fail("INVALID_REFRESH_TOKEN")
}

func (p *Provider) Lookup(ctx context.Context, idToken string) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("Lookup"); err != nil {
		return nil, err
	}
	u, err := p.userFor(idToken)
	if err != nil {
		return nil, err
	}
	acct := u.account
	return &acct, nil
}

func (p *Provider) SendEmailVerification(ctx context.Context, idToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("SendEmailVerification"); err != nil {
		return err
	}
	_, err := p.userFor(idToken)
	return err
}

func (p *Provider) UpdateProfile(ctx context.Context, idToken string, upd identity.ProfileUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("UpdateProfile"); err != nil {
		return err
	}
	u, err := p.userFor(idToken)
	if err != nil {
		return err
	}
	if upd.DisplayName != nil {
		u.account.DisplayName = *upd.DisplayName
	}
	if upd.PhotoURL != nil {
		u.account.PhotoURL = *upd.PhotoURL
	}
	return nil
}

func (p *Provider) DeleteAccount(ctx context.Context, idToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter("DeleteAccount"); err != nil {
		return err
	}
	u, err := p.userFor(idToken)
	if err != nil {
		return err
	}
	delete(p.byEmail, u.account.Email)
	delete(p.users, u.account.UID)
	return nil
}

func (p *Provider) SignOut(ctx context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enter("SignOut")
}

// SetVerified flips the verified flag, as clicking the email link would.
func (p *Provider) SetVerified(uid string, verified bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if u, ok := p.users[uid]; ok {
		u.account.EmailVerified = verified
	}
}
