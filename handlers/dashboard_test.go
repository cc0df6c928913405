package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accountdesk/accountdesk/internal/identity/identitytest"
)

type stubAvatars struct{ err error }

func (s stubAvatars) PutAvatar(ctx context.Context, uid string, r io.Reader, size int64, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.example.com/" + uid + ".png", nil
}

func TestDashboard_NoSessionRedirectsToLogin(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/api/v1/dashboard", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", decodeErr(t, w).Error.Details["redirect"])
	assert.Equal(t, 0, s.provider.TotalCalls())
}

func TestDashboard_ShowsAccountAndProfile(t *testing.T) {
	s := newTestServer(t, nil)
	uid := s.provider.AddUser("a@example.com", "secret1", true)
	sess := s.login(t, "a@example.com", "secret1")

	w := s.do(t, http.MethodGet, "/api/v1/dashboard", nil, sess.SessionToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Account struct {
			UID           string `json:"uid"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"account"`
		Profile struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uid, body.Account.UID)
	assert.True(t, body.Account.EmailVerified)
	assert.Equal(t, "a@example.com", body.Profile.Email)
	assert.True(t, body.Profile.EmailVerified)
}

func TestDashboard_CookieSession(t *testing.T) {
	s := newTestServer(t, nil)
	s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "accountdesk_session", Value: sess.SessionToken})
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateName_UpdatesProviderAndStore(t *testing.T) {
	s := newTestServer(t, nil)
	uid := s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")

	w := s.do(t, http.MethodPatch, "/api/v1/profile/name", UpdateNameRequest{DisplayName: "Alice B"}, sess.SessionToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"displayName":"Alice B"`)

	acct, _ := s.provider.Account(uid)
	assert.Equal(t, "Alice B", acct.DisplayName)
	p, err := s.profiles.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", p.DisplayName)
}

func TestUpdateName_ProviderFailureWritesNothing(t *testing.T) {
	s := newTestServer(t, nil)
	uid := s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")
	s.provider.Failures["UpdateProfile"] = identitytest.Fail("OPERATION_NOT_ALLOWED")

	w := s.do(t, http.MethodPatch, "/api/v1/profile/name", UpdateNameRequest{DisplayName: "X"}, sess.SessionToken)
	require.Equal(t, http.StatusBadGateway, w.Code)
	eb := decodeErr(t, w)
	assert.Equal(t, "OPERATION_NOT_ALLOWED", eb.Error.Message)
	assert.Equal(t, "provider", eb.Error.Details["step"])

	_, err := s.profiles.Get(context.Background(), uid)
	assert.Error(t, err)
}

func TestUpdateName_Validation(t *testing.T) {
	s := newTestServer(t, nil)
	s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")

	w := s.do(t, http.MethodPatch, "/api/v1/profile/name", UpdateNameRequest{DisplayName: "  "}, sess.SessionToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, s.provider.CallCount("UpdateProfile"))
}

func TestResendVerification(t *testing.T) {
	s := newTestServer(t, nil)
	uid := s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")

	w := s.do(t, http.MethodPost, "/api/v1/profile/verification", nil, sess.SessionToken)
	require.Equal(t, http.StatusAccepted, w.Code)

	s.provider.SetVerified(uid, true)
	w = s.do(t, http.MethodPost, "/api/v1/profile/verification", nil, sess.SessionToken)
	require.Equal(t, http.StatusConflict, w.Code)
}

func photoRequest(t *testing.T, token, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t, stubAvatars{})
	uid := s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/dashboard", nil, sess.SessionToken).Code)

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, photoRequest(t, sess.SessionToken, "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := s.profiles.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+uid+".png", p.PhotoURL)

	w = httptest.NewRecorder()
	s.engine.ServeHTTP(w, photoRequest(t, sess.SessionToken, "text/plain", []byte("hi")))
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadPhoto_StorageFailure(t *testing.T) {
	s := newTestServer(t, stubAvatars{err: errors.New("bucket gone")})
	s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, photoRequest(t, sess.SessionToken, "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestUploadPhoto_NotRegisteredWithoutStorage(t *testing.T) {
	s := newTestServer(t, nil)
	s.provider.AddUser("a@example.com", "secret1", false)
	sess := s.login(t, "a@example.com", "secret1")

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, photoRequest(t, sess.SessionToken, "image/png", []byte("\x89PNG")))
	require.Equal(t, http.StatusNotFound, w.Code)
}
