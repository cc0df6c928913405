package oidc

import (
	"context"
	"encoding/json"

	"firebase.google.com/go/v4/auth"

	"github.com/accountdesk/accountdesk/pkg/middleware"
)

// IDTokenVerifier is the Admin SDK call used here; *auth.Client satisfies it.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type firebaseToken struct {
	tok *auth.Token
}

// Claims merges the decoded custom claims with sub/uid/exp.
func (t *firebaseToken) Claims(v interface{}) error {
	m := make(map[string]interface{}, len(t.tok.Claims)+3)
	for k, val := range t.tok.Claims {
		m[k] = val
	}
	m["sub"] = t.tok.Subject
	m["uid"] = t.tok.UID
	m["exp"] = t.tok.Expires
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// FirebaseVerifier checks ID tokens with the Admin SDK (signature, audience,
// issuer and expiry).
type FirebaseVerifier struct {
	client IDTokenVerifier
}

func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	tok, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &firebaseToken{tok: tok}, nil
}
