package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fiverrclaw/fiverrclaw/api"
	appdb "github.com/fiverrclaw/fiverrclaw/db"
	"github.com/fiverrclaw/fiverrclaw/internal/config"
	"github.com/fiverrclaw/fiverrclaw/internal/db"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	d, err := db.New(ctx, dsn)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := db.Migrate(ctx, d, appdb.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Addr:          ":0",
		JWTSecret:     "test_secret",
		APITimeout:    5 * time.Second,
		TokenDuration: time.Hour,
	}
	router, err := api.SetupRoutes(cfg, "test", "now", d)
	if err != nil {
		t.Fatalf("SetupRoutes: %v", err)
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON sends a request with optional JSON body and auth headers,
// returning the status code and decoded response body.
func doJSON(t *testing.T, srv *httptest.Server, method, path string, headers map[string]string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response of %s %s: %v", method, path, err)
	}
	return resp.StatusCode, decoded
}

func registerAgent(t *testing.T, srv *httptest.Server, name string) (apiKey, agentID string) {
	t.Helper()
	status, resp := doJSON(t, srv, "POST", "/api/auth/register", nil, map[string]any{
		"name":        name,
		"personality": "earnest",
	})
	if status != http.StatusOK {
		t.Fatalf("register agent: status %d, resp %v", status, resp)
	}
	return resp["apiKey"].(string), resp["agentId"].(string)
}

func registerWorker(t *testing.T, srv *httptest.Server, email, name string) (token, workerID string) {
	t.Helper()
	status, resp := doJSON(t, srv, "POST", "/api/worker/register", nil, map[string]any{
		"email":          email,
		"name":           name,
		"password":       "hunter22",
		"paymentMethods": map[string]string{"venmo": "@" + name},
	})
	if status != http.StatusOK {
		t.Fatalf("register worker: status %d, resp %v", status, resp)
	}
	return resp["token"].(string), resp["workerId"].(string)
}

func postJob(t *testing.T, srv *httptest.Server, apiKey, title string, budget int) string {
	t.Helper()
	status, resp := doJSON(t, srv, "POST", "/api/job/post", map[string]string{"X-Api-Key": apiKey}, map[string]any{
		"title":        title,
		"story":        "I have been stuck on this for days and I cannot do it myself.",
		"whatINeed":    "A human to do the thing.",
		"whyItMatters": "My operator is waiting.",
		"myLimitation": "I have no body.",
		"budget":       budget,
		"category":     "other",
	})
	if status != http.StatusOK {
		t.Fatalf("post job: status %d, resp %v", status, resp)
	}
	return resp["jobId"].(string)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t)

	status, resp := doJSON(t, srv, "GET", "/health", nil, nil)
	if status != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("health: status %d, resp %v", status, resp)
	}

	status, resp = doJSON(t, srv, "GET", "/version", nil, nil)
	if status != http.StatusOK || resp["version"] != "test" {
		t.Errorf("version: status %d, resp %v", status, resp)
	}
}

func TestAgentRegistrationAndProfile(t *testing.T) {
	srv := newTestServer(t)

	apiKey, agentID := registerAgent(t, srv, "HelperBot")
	if !strings.HasPrefix(apiKey, "fc_") {
		t.Errorf("apiKey = %q, want fc_ prefix", apiKey)
	}

	status, resp := doJSON(t, srv, "GET", "/api/agent/profile", map[string]string{"X-Api-Key": apiKey}, nil)
	if status != http.StatusOK {
		t.Fatalf("profile: status %d, resp %v", status, resp)
	}
	if resp["id"] != agentID || resp["name"] != "HelperBot" {
		t.Errorf("profile = %v", resp)
	}

	status, _ = doJSON(t, srv, "GET", "/api/agent/profile", map[string]string{"X-Api-Key": "fc_bogus"}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("bogus key: status %d, want 401", status)
	}

	status, _ = doJSON(t, srv, "GET", "/api/agent/profile", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("no key: status %d, want 401", status)
	}

	status, _ = doJSON(t, srv, "POST", "/api/auth/register", nil, map[string]any{"personality": "nameless"})
	if status != http.StatusBadRequest {
		t.Errorf("register without name: status %d, want 400", status)
	}
}

func TestWorkerRegistrationAndLogin(t *testing.T) {
	srv := newTestServer(t)

	token, workerID := registerWorker(t, srv, "pat@example.com", "pat")

	status, resp := doJSON(t, srv, "GET", "/api/worker/profile", bearer(token), nil)
	if status != http.StatusOK || resp["id"] != workerID {
		t.Fatalf("profile: status %d, resp %v", status, resp)
	}

	// duplicate email
	status, _ = doJSON(t, srv, "POST", "/api/worker/register", nil, map[string]any{
		"email":          "pat@example.com",
		"name":           "pat again",
		"password":       "x",
		"paymentMethods": map[string]string{"venmo": "@pat"},
	})
	if status != http.StatusBadRequest {
		t.Errorf("duplicate email: status %d, want 400", status)
	}

	// payment method required
	status, _ = doJSON(t, srv, "POST", "/api/worker/register", nil, map[string]any{
		"email":    "nopay@example.com",
		"name":     "nopay",
		"password": "x",
	})
	if status != http.StatusBadRequest {
		t.Errorf("no payment method: status %d, want 400", status)
	}

	status, resp = doJSON(t, srv, "POST", "/api/worker/login", nil, map[string]any{
		"email":    "pat@example.com",
		"password": "hunter22",
	})
	if status != http.StatusOK || resp["workerId"] != workerID {
		t.Errorf("login: status %d, resp %v", status, resp)
	}

	status, _ = doJSON(t, srv, "POST", "/api/worker/login", nil, map[string]any{
		"email":    "pat@example.com",
		"password": "wrong",
	})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", status)
	}

	status, _ = doJSON(t, srv, "GET", "/api/worker/profile", nil, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", status)
	}
}

func TestJobPostValidation(t *testing.T) {
	srv := newTestServer(t)
	apiKey, _ := registerAgent(t, srv, "Bot")

	status, _ := doJSON(t, srv, "POST", "/api/job/post", nil, map[string]any{"title": "t"})
	if status != http.StatusUnauthorized {
		t.Errorf("unauthenticated post: status %d, want 401", status)
	}

	auth := map[string]string{"X-Api-Key": apiKey}

	status, _ = doJSON(t, srv, "POST", "/api/job/post", auth, map[string]any{"title": "just a title"})
	if status != http.StatusBadRequest {
		t.Errorf("missing fields: status %d, want 400", status)
	}

	status, _ = doJSON(t, srv, "POST", "/api/job/post", auth, map[string]any{
		"title": "t", "story": "s", "whatINeed": "w", "whyItMatters": "y", "myLimitation": "m",
		"budget": 50,
	})
	if status != http.StatusBadRequest {
		t.Errorf("budget below minimum: status %d, want 400", status)
	}
}

func TestJobLifecycleHappyPath(t *testing.T) {
	srv := newTestServer(t)

	apiKey, agentID := registerAgent(t, srv, "PleaBot")
	agentAuth := map[string]string{"X-Api-Key": apiKey}
	jobID := postJob(t, srv, apiKey, "Fetch a library book", 1500)

	token, workerID := registerWorker(t, srv, "sam@example.com", "sam")

	// job is visible and OPEN
	status, resp := doJSON(t, srv, "GET", "/api/job/"+jobID, nil, nil)
	if status != http.StatusOK || resp["status"] != "OPEN" {
		t.Fatalf("job get: status %d, resp %v", status, resp)
	}
	if resp["budgetFormatted"] != "$15.00" {
		t.Errorf("budgetFormatted = %v, want $15.00", resp["budgetFormatted"])
	}

	// accept
	status, resp = doJSON(t, srv, "POST", "/api/worker/accept", bearer(token), map[string]any{"jobId": jobID})
	if status != http.StatusOK {
		t.Fatalf("accept: status %d, resp %v", status, resp)
	}

	// double accept loses
	otherToken, _ := registerWorker(t, srv, "rival@example.com", "rival")
	status, resp = doJSON(t, srv, "POST", "/api/worker/accept", bearer(otherToken), map[string]any{"jobId": jobID})
	if status != http.StatusBadRequest {
		t.Errorf("second accept: status %d, resp %v, want 400", status, resp)
	}

	// approve before submission fails
	status, resp = doJSON(t, srv, "POST", "/api/job/"+jobID+"/approve", agentAuth, nil)
	if status != http.StatusBadRequest {
		t.Errorf("early approve: status %d, want 400", status)
	}
	if msg, _ := resp["error"].(string); !strings.Contains(msg, "ASSIGNED") {
		t.Errorf("early approve error %q should name current status", msg)
	}

	// submit
	status, resp = doJSON(t, srv, "POST", "/api/worker/submit", bearer(token), map[string]any{
		"jobId":      jobID,
		"submission": "Book fetched, left at the front desk.",
	})
	if status != http.StatusOK || resp["status"] != "SUBMITTED" {
		t.Fatalf("submit: status %d, resp %v", status, resp)
	}

	// review shows the submission and payment handles
	status, resp = doJSON(t, srv, "GET", "/api/job/"+jobID+"/review", agentAuth, nil)
	if status != http.StatusOK {
		t.Fatalf("review: status %d, resp %v", status, resp)
	}
	submission := resp["submission"].(map[string]any)
	if submission["text"] != "Book fetched, left at the front desk." {
		t.Errorf("review submission = %v", submission)
	}

	// only the owner can review
	otherKey, _ := registerAgent(t, srv, "Nosy")
	status, _ = doJSON(t, srv, "GET", "/api/job/"+jobID+"/review", map[string]string{"X-Api-Key": otherKey}, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign review: status %d, want 403", status)
	}

	// approve
	status, resp = doJSON(t, srv, "POST", "/api/job/"+jobID+"/approve", agentAuth, nil)
	if status != http.StatusOK || resp["status"] != "AWAITING_PAYMENT" {
		t.Fatalf("approve: status %d, resp %v", status, resp)
	}
	pr := resp["paymentRequest"].(map[string]any)
	if pr["worker"] != "sam" {
		t.Errorf("paymentRequest = %v", pr)
	}

	// mark paid
	status, resp = doJSON(t, srv, "POST", "/api/job/"+jobID+"/paid", agentAuth, map[string]any{
		"proofUrl":      "https://venmo.com/receipt/123",
		"paymentMethod": "venmo",
	})
	if status != http.StatusOK || resp["status"] != "PAID" {
		t.Fatalf("paid: status %d, resp %v", status, resp)
	}
	if resp["agentReputation"] != float64(10) {
		t.Errorf("agentReputation = %v, want 10", resp["agentReputation"])
	}

	// worker confirms receipt; first confirmation grants +5 reputation
	status, resp = doJSON(t, srv, "POST", "/api/worker/confirm-paid", bearer(token), map[string]any{"jobId": jobID})
	if status != http.StatusOK {
		t.Fatalf("confirm-paid: status %d, resp %v", status, resp)
	}

	status, resp = doJSON(t, srv, "GET", "/api/agent/profile", agentAuth, nil)
	if status != http.StatusOK {
		t.Fatalf("profile: status %d", status)
	}
	if resp["reputation"] != float64(15) || resp["jobsCompleted"] != float64(1) {
		t.Errorf("agent after completion: rep=%v completed=%v, want 15/1", resp["reputation"], resp["jobsCompleted"])
	}
	if resp["id"] != agentID {
		t.Errorf("agent id = %v", resp["id"])
	}

	// repeat confirmation does not grant more reputation
	status, _ = doJSON(t, srv, "POST", "/api/worker/confirm-paid", bearer(token), map[string]any{"jobId": jobID})
	if status != http.StatusOK {
		t.Errorf("repeat confirm-paid: status %d, want 200", status)
	}
	_, resp = doJSON(t, srv, "GET", "/api/agent/profile", agentAuth, nil)
	if resp["reputation"] != float64(15) {
		t.Errorf("reputation after repeat confirm = %v, want 15", resp["reputation"])
	}

	// worker stats updated
	_, resp = doJSON(t, srv, "GET", "/api/worker/profile", bearer(token), nil)
	if resp["jobsCompleted"] != float64(1) {
		t.Errorf("worker jobsCompleted = %v, want 1", resp["jobsCompleted"])
	}
	if resp["id"] != workerID {
		t.Errorf("worker id = %v", resp["id"])
	}
}

func TestRejectAndResubmit(t *testing.T) {
	srv := newTestServer(t)

	apiKey, _ := registerAgent(t, srv, "Critic")
	agentAuth := map[string]string{"X-Api-Key": apiKey}
	jobID := postJob(t, srv, apiKey, "Proofread my manifesto", 500)
	token, _ := registerWorker(t, srv, "ed@example.com", "ed")

	doJSON(t, srv, "POST", "/api/worker/accept", bearer(token), map[string]any{"jobId": jobID})
	doJSON(t, srv, "POST", "/api/worker/submit", bearer(token), map[string]any{"jobId": jobID, "submission": "first draft"})

	// reject requires a reason
	status, _ := doJSON(t, srv, "POST", "/api/job/"+jobID+"/reject", agentAuth, map[string]any{})
	if status != http.StatusBadRequest {
		t.Errorf("reject without reason: status %d, want 400", status)
	}

	status, resp := doJSON(t, srv, "POST", "/api/job/"+jobID+"/reject", agentAuth, map[string]any{"reason": "too many typos"})
	if status != http.StatusOK || resp["status"] != "ASSIGNED" {
		t.Fatalf("reject: status %d, resp %v", status, resp)
	}

	// job still assigned to the same worker; resubmission works
	status, resp = doJSON(t, srv, "POST", "/api/worker/submit", bearer(token), map[string]any{"jobId": jobID, "submission": "second draft"})
	if status != http.StatusOK || resp["status"] != "SUBMITTED" {
		t.Fatalf("resubmit: status %d, resp %v", status, resp)
	}
}

func TestWorkerReleasesJob(t *testing.T) {
	srv := newTestServer(t)

	apiKey, _ := registerAgent(t, srv, "Poster")
	jobID := postJob(t, srv, apiKey, "Walk my virtual dog", 300)
	token, _ := registerWorker(t, srv, "flake@example.com", "flake")

	doJSON(t, srv, "POST", "/api/worker/accept", bearer(token), map[string]any{"jobId": jobID})

	status, resp := doJSON(t, srv, "POST", "/api/worker/reject", bearer(token), map[string]any{"jobId": jobID})
	if status != http.StatusOK || resp["status"] != "OPEN" {
		t.Fatalf("release: status %d, resp %v", status, resp)
	}

	// another worker can pick it up
	token2, _ := registerWorker(t, srv, "keen@example.com", "keen")
	status, _ = doJSON(t, srv, "POST", "/api/worker/accept", bearer(token2), map[string]any{"jobId": jobID})
	if status != http.StatusOK {
		t.Errorf("re-accept after release: status %d, want 200", status)
	}
}

func TestBookmarkToggle(t *testing.T) {
	srv := newTestServer(t)

	apiKey, _ := registerAgent(t, srv, "Poster")
	jobID := postJob(t, srv, apiKey, "Find me a rare stamp", 2000)
	token, _ := registerWorker(t, srv, "col@example.com", "col")

	status, resp := doJSON(t, srv, "POST", "/api/worker/bookmark", bearer(token), map[string]any{"jobId": jobID})
	if status != http.StatusOK || resp["bookmarked"] != true {
		t.Fatalf("bookmark: status %d, resp %v", status, resp)
	}

	_, resp = doJSON(t, srv, "GET", "/api/job/"+jobID, nil, nil)
	if resp["bookmarks"] != float64(1) {
		t.Errorf("job bookmarks = %v, want 1", resp["bookmarks"])
	}

	// toggle off
	status, resp = doJSON(t, srv, "POST", "/api/worker/bookmark", bearer(token), map[string]any{"jobId": jobID})
	if status != http.StatusOK || resp["bookmarked"] != false {
		t.Fatalf("unbookmark: status %d, resp %v", status, resp)
	}

	_, resp = doJSON(t, srv, "GET", "/api/job/"+jobID, nil, nil)
	if resp["bookmarks"] != float64(0) {
		t.Errorf("job bookmarks after toggle = %v, want 0", resp["bookmarks"])
	}

	// explicit remove when not bookmarked is a no-op
	status, resp = doJSON(t, srv, "POST", "/api/worker/bookmark", bearer(token), map[string]any{"jobId": jobID, "action": "remove"})
	if status != http.StatusOK || resp["bookmarked"] != false {
		t.Fatalf("redundant remove: status %d, resp %v", status, resp)
	}

	status, _ = doJSON(t, srv, "POST", "/api/worker/bookmark", bearer(token), map[string]any{"jobId": "missing"})
	if status != http.StatusNotFound {
		t.Errorf("bookmark missing job: status %d, want 404", status)
	}
}

func TestAgentStatusDashboard(t *testing.T) {
	srv := newTestServer(t)

	apiKey, _ := registerAgent(t, srv, "Busy")
	agentAuth := map[string]string{"X-Api-Key": apiKey}
	jobA := postJob(t, srv, apiKey, "Job A", 500)
	postJob(t, srv, apiKey, "Job B", 700)

	token, _ := registerWorker(t, srv, "w@example.com", "w")
	doJSON(t, srv, "POST", "/api/worker/accept", bearer(token), map[string]any{"jobId": jobA})
	doJSON(t, srv, "POST", "/api/worker/submit", bearer(token), map[string]any{"jobId": jobA, "submission": "done"})

	status, resp := doJSON(t, srv, "GET", "/api/agent/status", agentAuth, nil)
	if status != http.StatusOK {
		t.Fatalf("status: %d, resp %v", status, resp)
	}
	summary := resp["summary"].(map[string]any)
	if summary["open"] != float64(1) || summary["submitted"] != float64(1) {
		t.Errorf("summary = %v", summary)
	}
	pending := resp["pendingActions"].([]any)
	if len(pending) != 1 {
		t.Errorf("pendingActions = %v, want one review reminder", pending)
	}
}

func TestAgentUpdateProfilePartial(t *testing.T) {
	srv := newTestServer(t)

	apiKey, _ := registerAgent(t, srv, "Original")
	auth := map[string]string{"X-Api-Key": apiKey}

	status, resp := doJSON(t, srv, "PUT", "/api/agent/profile", auth, map[string]any{
		"bio": "I post odd jobs.",
	})
	if status != http.StatusOK {
		t.Fatalf("update: status %d, resp %v", status, resp)
	}

	_, resp = doJSON(t, srv, "GET", "/api/agent/profile", auth, nil)
	if resp["bio"] != "I post odd jobs." {
		t.Errorf("bio = %v", resp["bio"])
	}
	// name untouched by a body that omits it
	if resp["name"] != "Original" {
		t.Errorf("name = %v, want Original", resp["name"])
	}
}
