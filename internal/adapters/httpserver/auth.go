package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	adminCookie       = "admin_token"
	stateCookie       = "oauth_state"
	adminSessionTTL   = 12 * time.Hour
)

// admin guards API handlers once Google login is configured.
func (s *Server) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.oauthCfg == nil {
			next(w, r)
			return
		}
		if _, err := s.verifyAdminToken(s.readAdminToken(r)); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "login necessário"})
			return
		}
		next(w, r)
	}
}

func (s *Server) readAdminToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if c, err := r.Cookie(adminCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth não configurado", http.StatusNotFound)
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: state, Path: "/", MaxAge: 300, HttpOnly: true, Secure: s.secure, SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth não configurado", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	c, _ := r.Cookie(stateCookie)
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		http.Error(w, "state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure})

	tok, err := s.oauthCfg.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("exchange oauth")
		http.Error(w, "oauth", http.StatusBadRequest)
		return
	}
	email, err := s.fetchEmail(r, tok)
	if err != nil {
		log.Error().Err(err).Msg("userinfo")
		http.Error(w, "userinfo", http.StatusBadRequest)
		return
	}
	if _, ok := s.adminAllowed[email]; !ok {
		log.Warn().Str("email", email).Msg("login from email not allowed")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	signed, _, err := s.issueAdminToken(email, adminSessionTTL)
	if err != nil {
		http.Error(w, "token", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: signed, Path: "/", MaxAge: int(adminSessionTTL.Seconds()), HttpOnly: true, Secure: s.secure, SameSite: http.SameSiteStrictMode})
	log.Info().Str("email", email).Msg("admin login")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) fetchEmail(r *http.Request, tok *oauth2.Token) (string, error) {
	resp, err := s.oauthCfg.Client(r.Context(), tok).Get(s.userInfoURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&info); err != nil {
		return "", err
	}
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if email == "" || !info.EmailVerified {
		return "", errors.New("no verified email")
	}
	return email, nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.secure, SameSite: http.SameSiteStrictMode})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueAdminToken(email string, dur time.Duration) (string, time.Time, error) {
	if len(s.adminSecret) == 0 {
		return "", time.Time{}, errors.New("session key not configured")
	}
	head := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	now := time.Now()
	exp := now.Add(dur)
	claims := map[string]any{"sub": email, "email": email, "role": "admin", "exp": exp.Unix(), "iat": now.Unix(), "iss": "comprarapida"}
	b, err := json.Marshal(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	unsigned := head + "." + base64.RawURLEncoding.EncodeToString(b)
	return unsigned + "." + s.sign(unsigned), exp, nil
}

func (s *Server) sign(unsigned string) string {
	h := hmac.New(sha256.New, s.adminSecret)
	h.Write([]byte(unsigned))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	if len(s.adminSecret) == 0 {
		return "", errors.New("session key not configured")
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", errors.New("malformed token")
	}
	unsigned := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(unsigned))) {
		return "", errors.New("bad signature")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("payload: %w", err)
	}
	var claims struct {
		Email string `json:"email"`
		Role  string `json:"role"`
		Exp   int64  `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", fmt.Errorf("claims: %w", err)
	}
	if claims.Role != "admin" || claims.Email == "" {
		return "", errors.New("claims")
	}
	if time.Now().Unix() > claims.Exp {
		return "", errors.New("expired")
	}
	if _, ok := s.adminAllowed[strings.ToLower(claims.Email)]; !ok {
		return "", errors.New("not allowed")
	}
	return claims.Email, nil
}
