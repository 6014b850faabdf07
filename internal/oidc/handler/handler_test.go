package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"oidcgate/internal/oidc/bridge"
	"oidcgate/internal/oidc/handler/mocks"
	"oidcgate/internal/oidc/models"
	"oidcgate/internal/oidc/service"

	dErrors "oidcgate/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/oidc-mocks.go -package=mocks

type OIDCHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *OIDCHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestOIDCHandlerSuite(t *testing.T) {
	suite.Run(t, new(OIDCHandlerSuite))
}

// userResolver simulates the application session integration: a fixed header
// carries the logged-in user in tests.
func userResolver(r *http.Request) string {
	return r.Header.Get("X-Test-User")
}

func newTestHandler(t *testing.T) (http.Handler, *mocks.MockProviderSource, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockProvider := mocks.NewMockProviderSource(ctrl)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(mockProvider, mockService, logger, nil, userResolver)
	r := chi.NewRouter()
	h.Register(r)
	return r, mockProvider, mockService
}

func (s *OIDCHandlerSuite) TestDisabledAnswersPlain404() {
	router, mockProvider, _ := newTestHandler(s.T())
	// Handler() must never be called: the flag short-circuits before any
	// provider construction or bridging.
	mockProvider.EXPECT().Enabled().Return(false)

	req := httptest.NewRequest(http.MethodGet, "/oidc/auth?client_id=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	assert.NotContains(s.T(), w.Body.String(), "disabled")
}

func (s *OIDCHandlerSuite) TestBridgedCallPreservesResponse() {
	router, mockProvider, _ := newTestHandler(s.T())
	mockProvider.EXPECT().Enabled().Return(true)
	mockProvider.EXPECT().Handler().Return(bridge.HandlerFunc(
		func(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
			// The engine sees provider-relative paths.
			assert.Equal(s.T(), "/auth", req.URL.Path)
			res.SetHeader("Content-Type", "application/json")
			res.AppendHeader("Set-Cookie", "a=1")
			res.AppendHeader("Set-Cookie", "b=2")
			res.WriteHeader(http.StatusSeeOther)
			res.SetHeader("Location", "https://app.example.com/callback?code=abc")
			_, _ = res.Write([]byte(`{}`))
			res.End()
		}), nil)

	req := httptest.NewRequest(http.MethodGet, "/oidc/auth?client_id=x", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "https://app.example.com/callback?code=abc", w.Header().Get("Location"))
	assert.Equal(s.T(), []string{"a=1", "b=2"}, w.Header().Values("Set-Cookie"))
}

func (s *OIDCHandlerSuite) TestBridgedCallFailureAnswersServerError() {
	router, mockProvider, _ := newTestHandler(s.T())
	mockProvider.EXPECT().Enabled().Return(true)
	mockProvider.EXPECT().Handler().Return(bridge.HandlerFunc(
		func(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
			done(errors.New("engine exploded"))
		}), nil)

	req := httptest.NewRequest(http.MethodGet, "/oidc/token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	assert.Contains(s.T(), w.Body.String(), "server_error")
	assert.NotContains(s.T(), w.Body.String(), "exploded")
}

func (s *OIDCHandlerSuite) TestDiscoveryIsBridgedFromWellKnown() {
	router, mockProvider, _ := newTestHandler(s.T())
	mockProvider.EXPECT().Enabled().Return(true)
	mockProvider.EXPECT().Handler().Return(bridge.HandlerFunc(
		func(ctx context.Context, req *bridge.Request, res *bridge.ResponseWriter, done func(error)) {
			assert.Equal(s.T(), "/.well-known/openid-configuration", req.URL.Path)
			res.SetHeader("Content-Type", "application/json")
			_, _ = res.Write([]byte(`{"issuer":"http://localhost:8080"}`))
			res.End()
		}), nil)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), "issuer")
}

func (s *OIDCHandlerSuite) TestInteractionDetails() {
	router, _, mockService := newTestHandler(s.T())
	mockService.EXPECT().GetInteractionDetails(gomock.Any(), "uid-1").Return(&service.InteractionDetails{
		UID:    "uid-1",
		Prompt: models.PromptDetail{Name: models.PromptConsent, Consent: &models.ConsentDetail{MissingOIDCScope: []string{"openid"}}},
		Client: models.Metadata{ID: "web-app", Name: "Web App"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/interaction/uid-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), `"consent"`)
	assert.Contains(s.T(), w.Body.String(), "Web App")
}

func consentForm(values url.Values, user string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/interaction/uid-1/consent", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	return req
}

func (s *OIDCHandlerSuite) TestConsentAccept() {
	router, _, mockService := newTestHandler(s.T())

	mockService.EXPECT().GetInteractionDetails(gomock.Any(), "uid-1").Return(&service.InteractionDetails{
		UID:       "uid-1",
		AccountID: "user-1",
		Params: models.AuthorizationParams{
			ClientID: "web-app",
			Scope:    "openid profile",
		},
		Prompt: models.PromptDetail{
			Name:    models.PromptConsent,
			Consent: &models.ConsentDetail{MissingOIDCClaims: []string{"name"}},
		},
	}, nil)
	grant := models.NewGrant("user-1", "web-app")
	mockService.EXPECT().FindOrCreateGrants(gomock.Any(), "user-1", "web-app", "").Return(grant, nil)
	mockService.EXPECT().SaveGrant(gomock.Any(), grant).DoAndReturn(
		func(ctx context.Context, g *models.Grant) (string, error) {
			// The route layer applies the approval to the grant before saving.
			assert.Equal(s.T(), []string{"openid", "profile"}, g.OIDCScope)
			assert.Contains(s.T(), g.OIDCClaims, "name")
			return "grant-1", nil
		})
	mockService.EXPECT().GetInteractionResult(gomock.Any(), "uid-1", &models.InteractionResult{
		Consent: &models.ConsentResult{GrantID: "grant-1"},
	}).Return("http://localhost:8080/oidc/auth/resume/uid-1", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, consentForm(url.Values{"consent": {"accept"}}, "user-1"))

	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "http://localhost:8080/oidc/auth/resume/uid-1", w.Header().Get("Location"))
}

func (s *OIDCHandlerSuite) TestConsentDeny() {
	router, _, mockService := newTestHandler(s.T())
	mockService.EXPECT().GetInteractionResult(gomock.Any(), "uid-1", &models.InteractionResult{
		Error:            "access_denied",
		ErrorDescription: "the user denied the request",
	}).Return("http://localhost:8080/oidc/auth/resume/uid-1", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, consentForm(url.Values{"consent": {"deny"}}, "user-1"))

	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
	assert.Equal(s.T(), "http://localhost:8080/oidc/auth/resume/uid-1", w.Header().Get("Location"))
}

func (s *OIDCHandlerSuite) TestConsentRequiresAppSession() {
	router, _, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, consentForm(url.Values{"consent": {"accept"}}, ""))

	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *OIDCHandlerSuite) TestConsentRejectsInvalidDecision() {
	router, _, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, consentForm(url.Values{"consent": {"maybe"}}, "user-1"))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "bad_request")
}

func (s *OIDCHandlerSuite) TestConsentRejectsAccountSwitch() {
	router, _, mockService := newTestHandler(s.T())
	mockService.EXPECT().GetInteractionDetails(gomock.Any(), "uid-1").Return(&service.InteractionDetails{
		UID:       "uid-1",
		AccountID: "someone-else",
		Params:    models.AuthorizationParams{ClientID: "web-app", Scope: "openid"},
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, consentForm(url.Values{"consent": {"accept"}}, "user-1"))

	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

// An unknown or expired interaction uid is a caller mistake, not a missing
// resource: the endpoint answers 400 with the standard invalid_request code.
func (s *OIDCHandlerSuite) TestConsentUnknownInteraction() {
	router, _, mockService := newTestHandler(s.T())
	mockService.EXPECT().GetInteractionDetails(gomock.Any(), "uid-1").
		Return(nil, dErrors.New(dErrors.CodeInvalidRequest, "interaction session is unknown or expired"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, consentForm(url.Values{"consent": {"accept"}}, "user-1"))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "invalid_request")
}

func (s *OIDCHandlerSuite) TestLoginSubmitsAppUser() {
	router, _, mockService := newTestHandler(s.T())
	mockService.EXPECT().FinishInteraction(gomock.Any(), "uid-1", &models.InteractionResult{
		Login: &models.LoginResult{AccountID: "user-1", Remember: true},
	}).Return("http://localhost:8080/oidc/auth/resume/uid-1", nil)

	form := url.Values{"remember": {"true"}}
	req := httptest.NewRequest(http.MethodPost, "/interaction/uid-1/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Test-User", "user-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusSeeOther, w.Code)
}

func TestConsentFormHelperKeepsEncoding(t *testing.T) {
	req := consentForm(url.Values{"consent": {"accept"}}, "user-1")
	require.NoError(t, req.ParseForm())
	assert.Equal(t, "accept", req.PostFormValue("consent"))
}
