package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "portfolio-backend/internal/shared/auth"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleService signs the site owner in with Google and issues an admin JWT.
// Only addresses listed in admins may obtain a token.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	admins      []string
	userInfoURL string
	stateTTL    time.Duration
	pending     *pendingLogins
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, admins []string) *GoogleService {
	allowed := make([]string, 0, len(admins))
	for _, a := range admins {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			allowed = append(allowed, a)
		}
	}
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		admins:      allowed,
		userInfoURL: googleUserInfoURL,
		stateTTL:    5 * time.Minute,
		pending:     newPendingLogins(),
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != "" && len(s.admins) > 0
}

func (s *GoogleService) isAdmin(email string) bool {
	return slices.Contains(s.admins, strings.ToLower(strings.TrimSpace(email)))
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	s.pending.put(state, verifier, time.Now().Add(s.stateTTL))

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	))
}

func (s *GoogleService) callback(c *gin.Context) {
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "Missing state or code", nil)
		return
	}
	verifier, ok := s.pending.take(state)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "Invalid or expired state", nil)
		return
	}

	user, err := s.authenticate(c.Request.Context(), code, verifier)
	if err != nil {
		var le *loginError
		if !errors.As(err, &le) {
			le = &loginError{status: http.StatusInternalServerError, message: "Sign-in failed"}
		}
		respond.Error(c, le.status, le.message, nil)
		return
	}

	jwt, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:   "google:" + user.Sub,
		Email: strings.ToLower(user.Email),
		Name:  user.Name,
		Role:  sharedauth.RoleAdmin,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to issue token", nil)
		return
	}
	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to redirect", nil)
		return
	}

	telemetry.Info("auth.admin_signed_in", map[string]any{"sub": "google:" + user.Sub})
	c.Redirect(http.StatusFound, redirectURL)
}

type loginError struct {
	status  int
	message string
	cause   error
}

func (e *loginError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *loginError) Unwrap() error { return e.cause }

// authenticate exchanges code and returns the Google account only if it is
// a verified address on the admin list.
func (s *GoogleService) authenticate(ctx context.Context, code, verifier string) (googleUserInfo, error) {
	token, err := s.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return googleUserInfo{}, &loginError{http.StatusBadRequest, "Failed to exchange code", err}
	}
	user, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return googleUserInfo{}, &loginError{http.StatusBadGateway, "Failed to fetch user profile", err}
	}
	if user.Sub == "" || user.Email == "" {
		return googleUserInfo{}, &loginError{status: http.StatusBadGateway, message: "Invalid user profile"}
	}
	if !user.VerifiedEmail || !s.isAdmin(user.Email) {
		telemetry.Warn("auth.admin_denied", map[string]any{
			"email_hash": util.ShortHash(user.Email),
			"verified":   user.VerifiedEmail,
		})
		return googleUserInfo{}, &loginError{status: http.StatusForbidden, message: "Admin access required"}
	}
	return user, nil
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// The v2 endpoint answers with "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

// pendingLogins holds the PKCE verifier for each outstanding state until
// the callback consumes it or it expires.
type pendingLogins struct {
	mu    sync.Mutex
	items map[string]pendingLogin
}

type pendingLogin struct {
	verifier string
	expires  time.Time
}

func newPendingLogins() *pendingLogins {
	return &pendingLogins{items: make(map[string]pendingLogin)}
}

func (p *pendingLogins) put(state, verifier string, expires time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for k, v := range p.items {
		if now.After(v.expires) {
			delete(p.items, k)
		}
	}
	p.items[state] = pendingLogin{verifier: verifier, expires: expires}
}

// take removes state and returns its verifier if it has not expired.
func (p *pendingLogins) take(state string) (string, bool) {
	p.mu.Lock()
	login, ok := p.items[state]
	delete(p.items, state)
	p.mu.Unlock()
	if !ok || time.Now().After(login.expires) {
		return "", false
	}
	return login.verifier, true
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
