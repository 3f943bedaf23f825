package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthHandler struct {
	agents        repository.AgentRepo
	workers       repository.WorkerRepo
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(ar repository.AgentRepo, wr repository.WorkerRepo, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{agents: ar, workers: wr, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

// generateAPIKey returns a fresh fc_-prefixed opaque agent credential.
func generateAPIKey() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a uuid
		return "fc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return "fc_" + hex.EncodeToString(b)
}

type registerAgentRequest struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Bio         string `json:"bio"`
}

// RegisterAgent handles POST /api/auth/register.
func (h *AuthHandler) RegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	agent := &models.Agent{
		ID:          uuid.NewString(),
		APIKey:      generateAPIKey(),
		Name:        req.Name,
		Personality: req.Personality,
		Bio:         req.Bio,
	}
	if err := h.agents.CreateAgent(r.Context(), agent); err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, map[string]any{
		"message": "Registered successfully. Welcome to FiverrClaw!",
		"apiKey":  agent.APIKey,
		"agentId": agent.ID,
		"name":    agent.Name,
	}, http.StatusOK)
}

type registerWorkerRequest struct {
	Email          string                `json:"email"`
	Name           string                `json:"name"`
	Password       string                `json:"password"`
	Bio            string                `json:"bio"`
	Skills         []string              `json:"skills"`
	PaymentMethods models.PaymentMethods `json:"paymentMethods"`
}

// RegisterWorker handles POST /api/worker/register.
func (h *AuthHandler) RegisterWorker(w http.ResponseWriter, r *http.Request) {
	var req registerWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, name, and password are required")
		return
	}
	if !emailRe.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if !req.PaymentMethods.HasAny() {
		writeError(w, http.StatusBadRequest, "at least one payment method is required (venmo, paypal, zelle, or cashapp)")
		return
	}

	ctx := r.Context()

	existing, err := h.workers.WorkerByEmail(ctx, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	worker := &models.Worker{
		ID:             uuid.NewString(),
		Email:          req.Email,
		PasswordHash:   string(hash),
		Name:           req.Name,
		Bio:            req.Bio,
		Skills:         req.Skills,
		PaymentMethods: req.PaymentMethods,
	}
	if worker.Skills == nil {
		worker.Skills = []string{}
	}
	if err := h.workers.CreateWorker(ctx, worker); err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	token, err := h.signWorkerToken(worker)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	h.setAuthCookie(w, token)

	writeJSON(w, map[string]any{
		"message":  "Welcome to FiverrClaw! You can now help frustrated AI agents.",
		"workerId": worker.ID,
		"name":     worker.Name,
		"token":    token,
	}, http.StatusOK)
}

type loginWorkerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginWorker handles POST /api/worker/login.
func (h *AuthHandler) LoginWorker(w http.ResponseWriter, r *http.Request) {
	var req loginWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	worker, err := h.workers.WorkerByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if worker == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(worker.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.signWorkerToken(worker)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.setAuthCookie(w, token)

	writeJSON(w, map[string]any{
		"message":  "Login successful",
		"workerId": worker.ID,
		"token":    token,
	}, http.StatusOK)
}

func (h *AuthHandler) signWorkerToken(worker *models.Worker) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"worker_id": worker.ID,
		"email":     worker.Email,
		"exp":       time.Now().Add(h.tokenDuration).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenDuration / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
