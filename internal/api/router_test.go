package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/audit"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/dispatch"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/fault"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/ratelimit"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/schedule"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/store"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/tools"
)

var testSigningKey = []byte("router-test-signing-key")

// fakeDirectory resolves account kinds and active locations from maps.
type fakeDirectory struct {
	kinds     map[string]string
	locations map[string]string
}

func (d *fakeDirectory) AccountKind(_ context.Context, userID string) (string, error) {
	return d.kinds[userID], nil
}

func (d *fakeDirectory) ActiveLocation(_ context.Context, tenantID string) (string, error) {
	return d.locations[tenantID], nil
}

// apiStore is a minimal tools.Store for routing tests.
type apiStore struct{}

func (apiStore) FindPetByName(_ context.Context, name string) (*store.Pet, error) {
	if name != "Rex" {
		return nil, store.ErrNotFound
	}
	return &store.Pet{ID: "pet-1", Name: "Rex"}, nil
}
func (apiStore) MedicalHistory(context.Context, string) ([]store.MedicalRecord, error) {
	return nil, nil
}
func (apiStore) AppointmentsOn(context.Context, string, time.Time) ([]schedule.Booking, error) {
	return nil, nil
}
func (apiStore) CreateAppointment(_ context.Context, in store.AppointmentInput) (*store.Appointment, error) {
	return &store.Appointment{ID: "appt-1", StartAt: in.StartAt, Status: "confirmed"}, nil
}
func (apiStore) SearchInventory(context.Context, string) ([]store.InventoryItem, error) {
	return nil, nil
}
func (apiStore) CreateLocation(context.Context, string, string) (*store.Location, error) {
	return &store.Location{ID: "loc-1"}, nil
}
func (apiStore) ListLocations(context.Context) ([]store.Location, error) { return nil, nil }
func (apiStore) AssignUserToLocation(context.Context, string, string) (*store.Assignment, error) {
	return &store.Assignment{ID: "assign-1"}, nil
}
func (apiStore) RemoveAssignment(context.Context, string, string) error { return nil }
func (apiStore) ListAssignments(context.Context) ([]store.Assignment, error) {
	return nil, nil
}

func newTestServer(t *testing.T, tiers ratelimit.Tiers) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	dir := &fakeDirectory{
		kinds:     map[string]string{"clinic-user": "business"},
		locations: map[string]string{"tenant-1": "loc-1"},
	}
	extractor := identity.NewExtractor(identity.ExtractorConfig{
		SigningKey: testSigningKey,
		Directory:  dir,
		Logger:     logger,
	})

	d, err := dispatch.NewDispatcher(
		tools.NewRegistry(),
		ratelimit.NewLimiter(),
		tiers,
		func(*identity.CallerContext) tools.Store { return apiStore{} },
		audit.NewLogWriter(logger),
		logger,
	)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}

	srv := httptest.NewServer(NewRouter(&Dependencies{
		Dispatcher: d,
		Extractor:  extractor,
		Logger:     logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func clinicToken(t *testing.T) string {
	return signToken(t, jwt.MapClaims{
		"sub":      "clinic-user",
		"org_id":   "tenant-1",
		"org_role": "admin",
	})
}

func doExecute(t *testing.T, srv *httptest.Server, token, body string) (*http.Response, *dispatch.Result) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/agent/actions", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var res dispatch.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return resp, &res
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestExecute_MissingAuthorization(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, err := srv.Client().Post(srv.URL+"/v1/agent/actions", "application/json",
		bytes.NewBufferString(`{"tool_name":"navigate_to_route"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExecute_GarbageToken(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, _ := doExecute(t, srv, "not-a-jwt",
		`{"tool_name":"navigate_to_route","arguments":{"route":"/home"}}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestExecute_NavigateSucceeds(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, res := doExecute(t, srv, clinicToken(t),
		`{"tool_name":"navigate_to_route","arguments":{"route":"/appointments"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !res.Success {
		t.Fatalf("success = false: %+v", res)
	}
	data := res.Data.(map[string]any)
	if data["route"] != "/appointments" {
		t.Fatalf("route = %v", data["route"])
	}
	if res.RequestID == "" {
		t.Fatal("request_id missing")
	}
}

func TestExecute_IndividualDeniedScheduling(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())
	token := signToken(t, jwt.MapClaims{"sub": "pet-owner"})

	resp, res := doExecute(t, srv, token,
		`{"tool_name":"schedule_appointment","arguments":{"pet_name":"Rex","start_time":"2026-03-10T10:00:00Z"}}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if res.Success {
		t.Fatal("success must be false")
	}
	if res.Code != fault.CodePermissionDenied {
		t.Fatalf("code = %q", res.Code)
	}
	if res.Error != "requires business account" {
		t.Fatalf("error = %q", res.Error)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, res := doExecute(t, srv, clinicToken(t), `{"tool_name":"drop_database"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if res.Code != fault.CodeUnknownTool {
		t.Fatalf("code = %q", res.Code)
	}
}

func TestExecute_InvalidArguments(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, res := doExecute(t, srv, clinicToken(t),
		`{"tool_name":"search_inventory","arguments":{"query":""}}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if res.Code != fault.CodeInvalidArgument {
		t.Fatalf("code = %q", res.Code)
	}
}

func TestExecute_PetNotFound(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	resp, res := doExecute(t, srv, clinicToken(t),
		`{"tool_name":"find_pet_and_navigate","arguments":{"pet_name":"Ghost"}}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if res.Code != fault.CodeNotFound {
		t.Fatalf("code = %q", res.Code)
	}
}

func TestExecute_RateLimited(t *testing.T) {
	tiers := ratelimit.DefaultTiers()
	tiers.Business = ratelimit.Config{Ceiling: 1, Window: time.Minute}
	srv := newTestServer(t, tiers)
	token := clinicToken(t)

	if resp, _ := doExecute(t, srv, token,
		`{"tool_name":"search_inventory","arguments":{"query":"flea"}}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("first call status = %d, want 200", resp.StatusCode)
	}

	resp, res := doExecute(t, srv, token,
		`{"tool_name":"search_inventory","arguments":{"query":"flea"}}`)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if res.Code != fault.CodeRateLimited {
		t.Fatalf("code = %q", res.Code)
	}
	if res.ResetAt == nil || res.ResetAt.IsZero() {
		t.Fatal("reset_at missing on throttled envelope")
	}

	// Open navigation tools are exempt and still work.
	if resp, _ := doExecute(t, srv, token,
		`{"tool_name":"navigate_to_route","arguments":{"route":"/home"}}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("bypass tool status = %d, want 200", resp.StatusCode)
	}
}

func TestExecute_BadBody(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	for _, body := range []string{`{not json`, `{}`} {
		resp, err := http.DefaultClient.Do(mustRequest(t, srv, clinicToken(t), body))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func mustRequest(t *testing.T, srv *httptest.Server, token, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/agent/actions", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, ratelimit.DefaultTiers())

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/agent/actions", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS headers")
	}
}
