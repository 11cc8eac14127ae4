package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/domain"
	"github.com/AlexTLDR/giftregistry/internal/server/handlers"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

func googleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := newState()
	if err != nil {
		s.log.Error("oauth login failed", "error", err)
		handlers.WriteErrorCode(w, r, http.StatusInternalServerError, "internal")
		return
	}

	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values["oauth_state"] = state
	if err := session.Save(r, w); err != nil {
		s.log.Error("failed to save session", "error", err)
		handlers.WriteErrorCode(w, r, http.StatusInternalServerError, "internal")
		return
	}

	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (s *Server) fetchGoogleProfile(ctx context.Context, code string) (domain.Profile, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to exchange token: %w", err)
	}

	client := s.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return domain.Profile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Profile{}, fmt.Errorf("user info returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to read user info: %w", err)
	}

	var userInfo struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(data, &userInfo); err != nil {
		return domain.Profile{}, fmt.Errorf("failed to parse user info: %w", err)
	}
	if userInfo.ID == "" || !userInfo.VerifiedEmail {
		return domain.Profile{}, fmt.Errorf("google account %q has no verified email", userInfo.Email)
	}

	return domain.Profile{
		ID:          "google:" + userInfo.ID,
		Email:       strings.ToLower(userInfo.Email),
		DisplayName: userInfo.Name,
		PhotoURL:    userInfo.Picture,
	}, nil
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, sessionName)
	want, _ := session.Values["oauth_state"].(string)
	if want == "" || r.URL.Query().Get("state") != want {
		handlers.WriteErrorCode(w, r, http.StatusBadRequest, "bad_request")
		return
	}
	delete(session.Values, "oauth_state")

	code := r.URL.Query().Get("code")
	if code == "" {
		handlers.WriteErrorCode(w, r, http.StatusBadRequest, "bad_request")
		return
	}

	profile, err := s.fetchProfile(r.Context(), code)
	if err != nil {
		s.log.Warn("google login failed", "error", err)
		handlers.WriteErrorCode(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	guest, err := s.recordLogin(r.Context(), profile)
	if err != nil {
		s.log.Error("failed to record login", "guest_id", profile.ID, "error", err)
		handlers.WriteErrorCode(w, r, http.StatusServiceUnavailable, "unavailable")
		return
	}

	session.Values["guest_id"] = guest.ID
	session.Values["email"] = guest.Email
	session.Values["name"] = guest.DisplayName
	if err := session.Save(r, w); err != nil {
		s.log.Error("failed to save session", "error", err)
		handlers.WriteErrorCode(w, r, http.StatusInternalServerError, "internal")
		return
	}

	s.log.Info("guest signed in", "guest_id", guest.ID, "status", guest.ApprovalStatus)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// recordLogin upserts the guest. Hosts are always approved; everyone else
// starts pending unless the event does not require approval.
func (s *Server) recordLogin(ctx context.Context, p domain.Profile) (*domain.Guest, error) {
	isAdmin := s.config.IsAdmin(p.Email)

	initial := domain.StatusPending
	if isAdmin {
		initial = domain.StatusApproved
	} else {
		settings, err := s.db.GetEventSettings(ctx, domain.EventSettings{RequireApproval: s.config.RequireApproval})
		if err != nil {
			return nil, err
		}
		if !settings.RequireApproval {
			initial = domain.StatusApproved
		}
	}

	guest, err := s.db.UpsertGuest(ctx, p, initial)
	if err != nil {
		return nil, err
	}
	if isAdmin && guest.ApprovalStatus != domain.StatusApproved {
		return s.db.SetApprovalStatus(ctx, guest.ID, domain.StatusApproved, "admin-emails")
	}
	return guest, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, sessionName)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		s.log.Warn("failed to clear session", "error", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
