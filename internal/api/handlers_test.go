package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medrep/hcpcrm/internal/agent"
	"github.com/medrep/hcpcrm/internal/storage"
	"github.com/medrep/hcpcrm/internal/tools"
)

func setupAppHandler(t *testing.T, a *agent.Agent) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handler := NewAppHandler(AppDeps{
		Store: store,
		Agent: a,
	})
	return handler, store
}

func jsonReq(method, url, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, "/health", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", resp["status"])
	}
}

func TestCreateInteraction(t *testing.T) {
	h, store := setupAppHandler(t, nil)

	body := `{"hcp_name":"Dr. John Smith","interaction_type":"Visit","notes":"Discussed new product features"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/interactions", body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rr.Code, rr.Body.String())
	}

	var created storage.Interaction
	decodeBody(t, rr, &created)
	if created.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	stored, err := store.GetInteraction(created.ID)
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if stored.HCPName != "Dr. John Smith" || stored.InteractionType != "Visit" {
		t.Errorf("stored = %+v", stored)
	}
}

// TestCreateInteraction_InvalidType covers the write-time restriction:
// the schema reserves "Meeting" but no write path accepts it.
func TestCreateInteraction_InvalidType(t *testing.T) {
	h, store := setupAppHandler(t, nil)

	for _, typ := range []string{"Meeting", "Email", "", "visit"} {
		body := fmt.Sprintf(`{"hcp_name":"Dr. Smith","interaction_type":%q}`, typ)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, jsonReq(http.MethodPost, "/interactions", body))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("type %q: status = %d, want 400", typ, rr.Code)
		}
	}

	count, err := store.CountInteractions()
	if err != nil {
		t.Fatalf("CountInteractions: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0 (invalid creates must not persist)", count)
	}
}

func TestCreateInteraction_MissingName(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/interactions", `{"interaction_type":"Visit"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestCreateInteraction_OversizeNotes(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	body := fmt.Sprintf(`{"hcp_name":"Dr. Smith","interaction_type":"Call","notes":%q}`, strings.Repeat("x", 5001))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/interactions", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func createTestInteraction(t *testing.T, store *storage.Store, name string) storage.Interaction {
	t.Helper()
	ix, err := store.CreateInteraction(name, "Visit", "notes for "+name)
	if err != nil {
		t.Fatalf("CreateInteraction: %v", err)
	}
	return ix
}

func TestListInteractions(t *testing.T) {
	h, store := setupAppHandler(t, nil)

	for i := 0; i < 3; i++ {
		createTestInteraction(t, store, fmt.Sprintf("Dr. %d", i))
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, "/interactions", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp InteractionListResponse
	decodeBody(t, rr, &resp)
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
	if len(resp.Interactions) != 3 {
		t.Fatalf("len = %d, want 3", len(resp.Interactions))
	}
	for i := 1; i < len(resp.Interactions); i++ {
		if resp.Interactions[i].ID > resp.Interactions[i-1].ID {
			t.Error("interactions not newest-first")
		}
	}
}

// TestListInteractions_LimitCapped verifies limit=200 is capped server-side at 100.
func TestListInteractions_LimitCapped(t *testing.T) {
	h, store := setupAppHandler(t, nil)

	for i := 0; i < 105; i++ {
		createTestInteraction(t, store, fmt.Sprintf("Dr. %d", i))
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, "/interactions?limit=200", ""))

	var resp InteractionListResponse
	decodeBody(t, rr, &resp)
	if len(resp.Interactions) != 100 {
		t.Errorf("len = %d, want 100 (limit capped)", len(resp.Interactions))
	}
	if resp.Count != 105 {
		t.Errorf("count = %d, want 105 (total, not page size)", resp.Count)
	}
}

func TestGetInteraction(t *testing.T) {
	h, store := setupAppHandler(t, nil)
	ix := createTestInteraction(t, store, "Dr. Chen")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, fmt.Sprintf("/interactions/%d", ix.ID), ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got storage.Interaction
	decodeBody(t, rr, &got)
	if got.ID != ix.ID || got.HCPName != "Dr. Chen" {
		t.Errorf("got = %+v", got)
	}
}

func TestGetInteraction_NotFound(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	for _, path := range []string{"/interactions/9999", "/interactions/abc"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, jsonReq(http.MethodGet, path, ""))
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rr.Code)
		}
	}
}

func TestDeleteInteraction(t *testing.T) {
	h, store := setupAppHandler(t, nil)
	ix := createTestInteraction(t, store, "Dr. Chen")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodDelete, fmt.Sprintf("/interactions/%d", ix.ID), ""))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, fmt.Sprintf("/interactions/%d", ix.ID), ""))
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rr.Code)
	}
}

// TestDeleteInteraction_NotFound verifies a missing id yields 404 and
// leaves the store untouched.
func TestDeleteInteraction_NotFound(t *testing.T) {
	h, store := setupAppHandler(t, nil)
	createTestInteraction(t, store, "Dr. Chen")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodDelete, "/interactions/9999", ""))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	count, err := store.CountInteractions()
	if err != nil {
		t.Fatalf("CountInteractions: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestBearerAuth_WhenConfigured(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewAppHandler(AppDeps{Store: store, Token: "secret-token"})

	// Health stays open.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, "/health", ""))
	if rr.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", rr.Code)
	}

	// Missing token rejected.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, "/interactions", ""))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rr.Code)
	}

	// Wrong token rejected.
	req := jsonReq(http.MethodGet, "/interactions", "")
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rr.Code)
	}

	// Correct token accepted.
	req = jsonReq(http.MethodGet, "/interactions", "")
	req.Header.Set("Authorization", "Bearer secret-token")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", rr.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, "/health", ""))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

// newStubAgent builds an agent whose model always replies with the given text.
func newStubAgent(reply string) *agent.Agent {
	return agent.New(stubChatter(reply), tools.NewRegistry())
}

type stubChatter string

func (s stubChatter) Chat(_ context.Context, _ []agent.Message) (string, error) {
	return string(s), nil
}
