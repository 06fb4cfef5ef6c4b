package httpserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/comprarapida/internal/domain"
	"github.com/phenrril/comprarapida/internal/format"
	"github.com/phenrril/comprarapida/internal/usecase"
)

const maxBodyBytes = 1 << 20

type Options struct {
	Customers *usecase.CustomerUC
	Purchases *usecase.PurchaseUC
	Locale    format.Locale

	// OAuth enables the admin login. Without it the API is open.
	OAuth         *oauth2.Config
	SessionKey    string
	AllowedEmails []string
	SecureCookies bool

	RateLimitRPS   float64
	RateLimitBurst int
	TrustedProxies []*net.IPNet
}

type Server struct {
	mux       *http.ServeMux
	customers *usecase.CustomerUC
	purchases *usecase.PurchaseUC
	locale    format.Locale
	oauthCfg  *oauth2.Config

	adminAllowed map[string]struct{}
	adminSecret  []byte
	secure       bool
	userInfoURL  string
}

func New(opts Options) http.Handler {
	s := newServer(opts)
	return Chain(s.mux,
		RateLimit(opts.RateLimitRPS, opts.RateLimitBurst, opts.TrustedProxies),
		RequestID,
		Recovery,
		Logging,
	)
}

func newServer(opts Options) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		customers:    opts.Customers,
		purchases:    opts.Purchases,
		locale:       opts.Locale,
		oauthCfg:     opts.OAuth,
		adminAllowed: map[string]struct{}{},
		adminSecret:  []byte(opts.SessionKey),
		secure:       opts.SecureCookies,
		userInfoURL:  googleUserInfoURL,
	}
	if s.locale.Name == "" {
		s.locale = format.PTBR
	}
	for _, e := range opts.AllowedEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			s.adminAllowed[e] = struct{}{}
		}
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/customers", s.admin(s.apiCustomers))
	s.mux.HandleFunc("/api/customers/", s.admin(s.apiCustomerByID))
	s.mux.HandleFunc("/api/purchases", s.admin(s.apiPurchases))
	s.mux.HandleFunc("/api/purchases/", s.admin(s.apiPurchaseByID))
	s.mux.HandleFunc("/api/stats", s.admin(s.apiStats))
	s.mux.HandleFunc("/api/export/", s.admin(s.apiExport))

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/auth/logout", s.handleLogout)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) apiCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.customers.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]customerResponse, 0, len(list))
		for i := range list {
			out = append(out, s.customerDTO(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req customerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := s.customers.Create(r.Context(), req.input())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.customerDTO(c))
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) apiCustomerByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/customers/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := s.customers.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.customerDTO(c))
	case http.MethodPut, http.MethodPatch:
		var req customerRequest
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := s.customers.Update(r.Context(), id, req.patch())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, s.customerDTO(c))
	case http.MethodDelete:
		if err := s.customers.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) apiPurchases(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := s.purchases.Search(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]purchaseResponse, 0, len(list))
		for i := range list {
			out = append(out, s.purchaseDTO(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req purchaseRequest
		if !decodeBody(w, r, &req) {
			return
		}
		patch, err := req.patch(s.locale)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, err := s.purchases.Create(r.Context(), purchaseInput(patch))
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.writePurchase(w, r, http.StatusCreated, p.ID)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) apiPurchaseByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "/api/purchases/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.writePurchase(w, r, http.StatusOK, id)
	case http.MethodPut, http.MethodPatch:
		var req purchaseRequest
		if !decodeBody(w, r, &req) {
			return
		}
		patch, err := req.patch(s.locale)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.purchases.Update(r.Context(), id, patch); err != nil {
			writeError(w, r, err)
			return
		}
		s.writePurchase(w, r, http.StatusOK, id)
	case http.MethodDelete:
		if err := s.purchases.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

// writePurchase re-reads the purchase so the response carries the customer name.
func (s *Server) writePurchase(w http.ResponseWriter, r *http.Request, code int, id string) {
	v, err := s.purchases.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, code, s.purchaseDTO(v))
}

func (s *Server) apiStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	st, err := s.purchases.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statsDTO(st))
}

func pathID(r *http.Request, prefix string) (string, bool) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "JSON inválido"})
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed", Message: "método não permitido"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

var userMessages = []struct {
	err error
	msg string
}{
	{domain.ErrInvalidAmount, "valor deve ser maior que zero"},
	{domain.ErrDuplicateTaxID, "CPF já cadastrado"},
	{domain.ErrCustomerHasPurchases, "cliente possui compras e não pode ser excluído"},
	{domain.ErrCustomerNotFound, "cliente não encontrado"},
	{domain.ErrPurchaseNotFound, "compra não encontrada"},
}

func userMessage(err error, fallback string) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return fallback
}

// writeError maps the domain taxonomy onto HTTP. Backend causes are logged
// and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: ve.Message, Field: ve.Field})
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: userMessage(err, "dados inválidos")})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: userMessage(err, "não encontrado")})
	case errors.Is(err, domain.ErrConstraint):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict", Message: userMessage(err, "operação conflita com dados existentes")})
	case errors.Is(err, domain.ErrBackendUnavailable):
		log.Error().Err(err).Str("request_id", requestIDOf(r)).Msg("backend unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Message: "serviço indisponível, tente novamente"})
	default:
		log.Error().Err(err).Str("request_id", requestIDOf(r)).Msg("unexpected error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "erro interno"})
	}
}
