package api

import (
	"context"
	"net/http"
	"os"
	"strings"

	"log/slog"

	"github.com/fiverrclaw/fiverrclaw/internal/models"
	"github.com/fiverrclaw/fiverrclaw/pkg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

type ctxKey string

const (
	ctxAgent  ctxKey = "agent"
	ctxWorker ctxKey = "worker"
)

// AuthCookieName is the cookie carrying the worker session token.
const AuthCookieName = "fiverr_auth"

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Api-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// resolveAgent looks up the agent named by the x-api-key header. A
// missing header or unknown key yields a nil agent, not an error; errors
// are store failures only.
func resolveAgent(ctx context.Context, r *http.Request, agents repository.AgentRepo) (*models.Agent, error) {
	apiKey := r.Header.Get("x-api-key")
	if apiKey == "" {
		return nil, nil
	}

	return agents.AgentByAPIKey(ctx, apiKey)
}

// resolveWorker authenticates a worker from a Bearer token or the
// session cookie, both carrying the same signed token.
func resolveWorker(ctx context.Context, r *http.Request, workers repository.WorkerRepo, secret string) (*models.Worker, error) {
	tokenString := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if tokenString == "" {
		if c, err := r.Cookie(AuthCookieName); err == nil {
			tokenString = c.Value
		}
	}
	if tokenString == "" {
		return nil, nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil
	}
	workerID, _ := claims["worker_id"].(string)
	if workerID == "" {
		return nil, nil
	}

	return workers.WorkerByID(ctx, workerID)
}

// AgentAuthMiddleware requires a valid x-api-key and puts the agent into
// the request context.
func AgentAuthMiddleware(agents repository.AgentRepo) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agent, err := resolveAgent(r.Context(), r, agents)
			if err != nil {
				logger.Error("agent lookup", slog.Any("err", err))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if agent == nil {
				writeError(w, http.StatusUnauthorized, "missing or invalid x-api-key header")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxAgent, agent)))
		})
	}
}

// WorkerAuthMiddleware requires a valid worker token (bearer or cookie)
// and puts the worker into the request context.
func WorkerAuthMiddleware(workers repository.WorkerRepo, secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			worker, err := resolveWorker(r.Context(), r, workers, secret)
			if err != nil {
				logger.Error("worker lookup", slog.Any("err", err))
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if worker == nil {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxWorker, worker)))
		})
	}
}

func agentFromContext(ctx context.Context) *models.Agent {
	a, _ := ctx.Value(ctxAgent).(*models.Agent)
	return a
}

func workerFromContext(ctx context.Context) *models.Worker {
	w, _ := ctx.Value(ctxWorker).(*models.Worker)
	return w
}
