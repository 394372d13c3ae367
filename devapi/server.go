// Package devapi is a local stand-in for the remote user-management API. It implements the
// same register/login contract so the web frontend can be run and tested without the
// hosted service.
package devapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	issuer       = "woorkroom-devapi"
	maxBodyBytes = 1_048_576
)

// Config tunes the stand-in.
type Config struct {
	// IssueTokens controls whether successful calls return a token.
	IssueTokens bool
	// BcryptCost is the password hashing cost. Values below bcrypt.MinCost use the default.
	BcryptCost int
	// SigningKeys is the number of rotating RSA keys.
	SigningKeys int
}

// Server serves the user API.
type Server struct {
	cfg      Config
	users    *userStore
	signer   *Signer
	validate *validator.Validate
	logger   *zap.Logger
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=6"`
	Username string `json:"username" validate:"required,min=6"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// New builds a Server with an empty user store and fresh signing keys.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	signer, err := NewSigner(cfg.SigningKeys)
	if err != nil {
		return nil, err
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Server{
		cfg:      cfg,
		users:    newUserStore(cfg.BcryptCost),
		signer:   signer,
		validate: v,
		logger:   logger,
	}, nil
}

// Router returns the API routes wrapped in middlewares.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Post("/api/users/", s.registerHandler)
	r.Post("/api/auth/", s.loginHandler)
	r.Get("/.well-known/jwks.json", s.jwksHandler)

	return r
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	u, err := s.users.create(req.Name, req.Username, req.Password)
	if errors.Is(err, ErrUsernameTaken) {
		writeJSONError(w, http.StatusConflict, "Username taken")
		return
	}
	if err != nil {
		s.logger.Error("devapi: create user", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Could not create user")
		return
	}

	s.logger.Info("devapi: user registered", zap.String("username", u.Username))
	s.respondWithToken(w, http.StatusCreated, u)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	u, err := s.users.authenticate(req.Username, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	s.respondWithToken(w, http.StatusOK, u)
}

// jwksHandler serves the public keys tokens are signed with.
func (s *Server) jwksHandler(w http.ResponseWriter, _ *http.Request) {
	set, err := s.signer.PublicSet()
	if err != nil {
		s.logger.Error("devapi: public key set", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Could not load keys")
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, u user) {
	if !s.cfg.IssueTokens {
		writeJSON(w, status, map[string]string{"username": u.Username})
		return
	}

	token, err := s.signer.Sign(jwt.MapClaims{
		"iss":  issuer,
		"sub":  u.Username,
		"name": u.Name,
		"iat":  time.Now().Unix(),
		"jti":  uuid.NewString(),
	})
	if err != nil {
		s.logger.Error("devapi: sign token", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, status, map[string]string{"token": token})
}

// decode reads and validates a JSON body, answering 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
