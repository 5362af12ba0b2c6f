package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/audience"
	"github.com/xenocrm/crm-backend/internal/auth"
	"github.com/xenocrm/crm-backend/internal/delivery"
	"github.com/xenocrm/crm-backend/internal/segment"
	"github.com/xenocrm/crm-backend/internal/store"
)

const testAdminKey = "test-admin-key"

// recordSink writes delivery events straight through to the log, so tests see
// stats without waiting on a queue.
type recordSink struct {
	log *delivery.Log
}

func (s recordSink) Dispatch(ev delivery.Event) {
	_, _ = s.log.Record(context.Background(), ev)
}

type fixture struct {
	store   *store.MemoryStore
	log     *delivery.Log
	handler http.Handler
}

func newFixture(t *testing.T, successRate float64) *fixture {
	t.Helper()

	m := store.NewMemoryStore()
	log := delivery.NewLog(m)
	sink := recordSink{log: log}
	aud := audience.New(m)

	senders := func(campaignID string) delivery.Sender {
		return delivery.NewSimulator(sink,
			rand.New(rand.NewSource(delivery.BatchSeed(campaignID, "test-salt"))),
			successRate)
	}
	runner := delivery.NewRunner(aud, senders, zap.NewNop(), 4, time.Minute)
	sim := delivery.NewSimulator(sink, rand.New(rand.NewSource(1)), successRate)

	srv := NewServer(Options{
		Store:       m,
		Audience:    aud,
		Log:         log,
		Runner:      runner,
		Simulator:   sim,
		Verifier:    auth.NewStaticVerifier(),
		Logger:      zap.NewNop(),
		AdminAPIKey: testAdminKey,
	})
	return &fixture{store: m, log: log, handler: srv.Router()}
}

func (f *fixture) seedCustomers(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []store.Customer{
		{Name: "Ada", Email: "ada@example.com", TotalSpend: 1500, Visits: 10},
		{Name: "Grace", Email: "grace@example.com", TotalSpend: 500, Visits: 1},
		{Name: "Edsger", Email: "edsger@example.com", TotalSpend: 2000, Visits: 4},
	} {
		if _, err := f.store.CreateCustomer(ctx, c); err != nil {
			t.Fatalf("seed customer: %v", err)
		}
	}
}

// do issues a JSON request against the router. token is attached as a bearer
// header when non-empty.
func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode request body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	return decodeBody[ErrorResponse](t, rec)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, 1.0)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateCustomer(t *testing.T) {
	f := newFixture(t, 1.0)

	t.Run("created with admin token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers", testAdminKey,
			store.Customer{Name: "Ada", Email: "ada@example.com", TotalSpend: 1500})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		created := decodeBody[store.Customer](t, rec)
		if created.ID == "" {
			t.Fatal("response has no assigned ID")
		}
	})

	t.Run("missing token is 401", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers", "",
			store.Customer{Name: "Ada", Email: "ada@example.com"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if e := decodeError(t, rec); e.Code != ErrCodeUnauthorized {
			t.Fatalf("code = %s", e.Code)
		}
	})

	t.Run("wrong token is 403", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers", "not-the-key",
			store.Customer{Name: "Ada", Email: "ada@example.com"})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("missing email is 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers", testAdminKey,
			store.Customer{Name: "Ada"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if e := decodeError(t, rec); e.Code != ErrCodeMissingField {
			t.Fatalf("code = %s", e.Code)
		}
	})
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, 1.0)

	rec := f.do(t, http.MethodPost, "/api/orders", testAdminKey,
		store.Order{CustomerID: "u1", Amount: 49.99})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/orders", testAdminKey, store.Order{Amount: 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing customerId: status = %d, want 400", rec.Code)
	}
}

func TestFilterCustomers(t *testing.T) {
	f := newFixture(t, 1.0)
	f.seedCustomers(t)

	t.Run("spend threshold counts two", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "",
			`[{"field":"totalSpend","operator":">","value":1000,"condition":"AND"}]`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if got := decodeBody[filterResponse](t, rec); got.Count != 2 {
			t.Fatalf("count = %d, want 2", got.Count)
		}
	})

	t.Run("numeric string operand counts the same", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "",
			`[{"field":"totalSpend","operator":">","value":"1000","condition":"AND"}]`)
		if got := decodeBody[filterResponse](t, rec); got.Count != 2 {
			t.Fatalf("count = %d, want 2", got.Count)
		}
	})

	t.Run("empty body previews everyone", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		if got := decodeBody[filterResponse](t, rec); got.Count != 3 {
			t.Fatalf("count = %d, want 3", got.Count)
		}
	})

	t.Run("empty array previews everyone", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "", `[]`)
		if got := decodeBody[filterResponse](t, rec); got.Count != 3 {
			t.Fatalf("count = %d, want 3", got.Count)
		}
	})

	t.Run("unknown operator rejected with rule index", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "",
			`[{"field":"visits","operator":">=","value":3,"condition":"AND"}]`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		e := decodeError(t, rec)
		if e.Code != ErrCodeValidation {
			t.Fatalf("code = %s, want %s", e.Code, ErrCodeValidation)
		}
		if !strings.Contains(e.Message, "rule[0]") {
			t.Fatalf("message %q does not name the failing rule", e.Message)
		}
	})

	t.Run("and-or fold honours rule order", func(t *testing.T) {
		// (spend>1000 OR visits<3) AND email=grace: Grace matches visits<3
		// but fails the trailing AND, Ada and Edsger fail it too.
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "",
			`[{"field":"totalSpend","operator":">","value":1000,"condition":"AND"},
			  {"field":"visits","operator":"<","value":3,"condition":"OR"},
			  {"field":"email","operator":"=","value":"grace@example.com","condition":"AND"}]`)
		if got := decodeBody[filterResponse](t, rec); got.Count != 1 {
			t.Fatalf("count = %d, want 1", got.Count)
		}
	})
}

// failingStore errors on every read so handlers must surface a store error,
// never a zero count.
type failingStore struct {
	*store.MemoryStore
}

var errStoreDown = errors.New("store down")

func (f failingStore) CountCustomers(ctx context.Context, q *segment.Query) (int64, error) {
	return 0, errStoreDown
}

func (f failingStore) FindCustomers(ctx context.Context, q *segment.Query) ([]store.Customer, error) {
	return nil, errStoreDown
}

func (f failingStore) ListCampaigns(ctx context.Context) ([]store.Campaign, error) {
	return nil, errStoreDown
}

func TestStoreFailureIsNotZeroCount(t *testing.T) {
	broken := failingStore{MemoryStore: store.NewMemoryStore()}
	log := delivery.NewLog(broken)
	aud := audience.New(broken)
	senders := func(string) delivery.Sender {
		return delivery.NewSimulator(recordSink{log: log}, rand.New(rand.NewSource(1)), 1.0)
	}
	srv := NewServer(Options{
		Store:       broken,
		Audience:    aud,
		Log:         log,
		Runner:      delivery.NewRunner(aud, senders, zap.NewNop(), 2, time.Minute),
		Simulator:   delivery.NewSimulator(recordSink{log: log}, rand.New(rand.NewSource(1)), 1.0),
		Verifier:    auth.NewStaticVerifier(),
		Logger:      zap.NewNop(),
		AdminAPIKey: testAdminKey,
	})
	f := &fixture{handler: srv.Router()}

	t.Run("filter", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/customers/filter", "", `[]`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if e := decodeError(t, rec); e.Code != ErrCodeStore {
			t.Fatalf("code = %s, want %s", e.Code, ErrCodeStore)
		}
	})

	t.Run("deliver", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/campaigns/deliver", testAdminKey,
			`{"campaignId":"c1","rules":[]}`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if e := decodeError(t, rec); e.Code != ErrCodeStore {
			t.Fatalf("code = %s, want %s", e.Code, ErrCodeStore)
		}
	})

	t.Run("list campaigns", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/campaigns", "", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})
}

func TestCampaignLifecycle(t *testing.T) {
	f := newFixture(t, 1.0)
	f.seedCustomers(t)

	rulesJSON := `[{"field":"totalSpend","operator":">","value":1000,"condition":"AND"}]`

	// Preview, then create with the snapshot the preview produced.
	rec := f.do(t, http.MethodPost, "/api/customers/filter", "", rulesJSON)
	preview := decodeBody[filterResponse](t, rec)
	if preview.Count != 2 {
		t.Fatalf("preview count = %d, want 2", preview.Count)
	}

	rec = f.do(t, http.MethodPost, "/api/campaigns", testAdminKey,
		`{"name":"big spenders","rules":`+rulesJSON+`,"audienceSize":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[store.Campaign](t, rec)
	if created.ID == "" || created.AudienceSize != 2 {
		t.Fatalf("created campaign %+v", created)
	}

	// Older campaign to check ordering.
	rec = f.do(t, http.MethodPost, "/api/campaigns", testAdminKey,
		`{"name":"second","rules":[],"audienceSize":3}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/campaigns", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	campaigns := decodeBody[[]store.Campaign](t, rec)
	if len(campaigns) != 2 {
		t.Fatalf("list returned %d campaigns, want 2", len(campaigns))
	}
	if campaigns[0].Name != "second" {
		t.Fatalf("newest first violated: %s", campaigns[0].Name)
	}

	// Deliver the campaign; success rate is 1.0 so everything sends.
	rec = f.do(t, http.MethodPost, "/api/campaigns/deliver", testAdminKey,
		`{"campaignId":"`+created.ID+`","rules":`+rulesJSON+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("deliver status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[delivery.BatchResult](t, rec)
	if result.Recipients != 2 || result.Sent != 2 || result.Failed != 0 {
		t.Fatalf("deliver result %+v", result)
	}

	// Stats reflect the batch.
	rec = f.do(t, http.MethodGet, "/api/campaigns/stats/"+created.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	stats := decodeBody[delivery.Stats](t, rec)
	if stats.Sent != 2 || stats.Failed != 0 {
		t.Fatalf("stats %+v", stats)
	}
}

func TestCreateCampaign_InvalidRules(t *testing.T) {
	f := newFixture(t, 1.0)

	rec := f.do(t, http.MethodPost, "/api/campaigns", testAdminKey,
		`{"name":"broken","rules":{"not":"an array"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeliverCampaign_SkipsUnknownOperators(t *testing.T) {
	f := newFixture(t, 1.0)
	f.seedCustomers(t)

	// A stored campaign with a rule nobody understands anymore still
	// delivers; the unknown rule contributes nothing, leaving everyone in.
	rec := f.do(t, http.MethodPost, "/api/campaigns/deliver", testAdminKey,
		`{"campaignId":"legacy","rules":[{"field":"visits","operator":"between","value":3,"condition":"AND"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[delivery.BatchResult](t, rec)
	if result.Recipients != 3 {
		t.Fatalf("recipients = %d, want 3", result.Recipients)
	}
}

func TestVendorSend(t *testing.T) {
	f := newFixture(t, 1.0)

	rec := f.do(t, http.MethodPost, "/vendor/send", "",
		`{"campaignId":"c1","customerId":"u1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[vendorSendResponse](t, rec)
	if resp.Status != store.StatusSent {
		t.Fatalf("status = %q, want SENT at success rate 1.0", resp.Status)
	}

	// The matching event reached the log.
	stats, err := f.log.StatsFor(context.Background(), "c1")
	if err != nil {
		t.Fatalf("StatsFor failed: %v", err)
	}
	if stats.Sent != 1 {
		t.Fatalf("stats %+v, want one sent", stats)
	}

	rec = f.do(t, http.MethodPost, "/vendor/send", "", `{"campaignId":"c1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing customerId: status = %d, want 400", rec.Code)
	}
}

func TestDeliveryReceipt(t *testing.T) {
	f := newFixture(t, 1.0)

	t.Run("recorded without foreign key checks", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/delivery-receipt", "",
			`{"campaignId":"never-created","customerId":"ghost","status":"failed"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		entry := decodeBody[store.CommunicationLog](t, rec)
		if entry.ID == "" || entry.Timestamp.IsZero() {
			t.Fatalf("entry %+v missing server-assigned fields", entry)
		}

		// Lowercase status still partitions as FAILED.
		stats, err := f.log.StatsFor(context.Background(), "never-created")
		if err != nil {
			t.Fatalf("StatsFor failed: %v", err)
		}
		if stats.Failed != 1 {
			t.Fatalf("stats %+v, want one failed", stats)
		}
	})

	t.Run("missing status is 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/delivery-receipt", "",
			`{"campaignId":"c1","customerId":"u1"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unrecognised status counts to neither bucket", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/delivery-receipt", "",
			`{"campaignId":"c-other","customerId":"u1","status":"BOUNCED"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		stats, err := f.log.StatsFor(context.Background(), "c-other")
		if err != nil {
			t.Fatalf("StatsFor failed: %v", err)
		}
		if stats.Sent != 0 || stats.Failed != 0 {
			t.Fatalf("stats %+v, want zero/zero", stats)
		}
	})
}

func TestCurrentUser(t *testing.T) {
	m := store.NewMemoryStore()
	log := delivery.NewLog(m)
	verifier := auth.NewStaticVerifier()
	id := auth.Identity{Email: "ops@example.com", Name: "Ops"}
	if err := verifier.Add("crm_testtoken", id); err != nil {
		t.Fatalf("Add token: %v", err)
	}

	aud := audience.New(m)
	senders := func(string) delivery.Sender {
		return delivery.NewSimulator(recordSink{log: log}, rand.New(rand.NewSource(1)), 1.0)
	}
	srv := NewServer(Options{
		Store:       m,
		Audience:    aud,
		Log:         log,
		Runner:      delivery.NewRunner(aud, senders, zap.NewNop(), 2, time.Minute),
		Simulator:   delivery.NewSimulator(recordSink{log: log}, rand.New(rand.NewSource(1)), 1.0),
		Verifier:    verifier,
		Logger:      zap.NewNop(),
		AdminAPIKey: testAdminKey,
	})
	f := &fixture{handler: srv.Router()}

	rec := f.do(t, http.MethodGet, "/api/user", "crm_testtoken", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[auth.Identity](t, rec)
	if got != id {
		t.Fatalf("identity = %+v, want %+v", got, id)
	}

	rec = f.do(t, http.MethodGet, "/api/user", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/user", "crm_wrongtoken", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown token status = %d, want 401", rec.Code)
	}
}

func TestSuggestMessages(t *testing.T) {
	f := newFixture(t, 1.0)

	rec := f.do(t, http.MethodPost, "/api/ai/suggest-messages", "",
		`{"prompt":"win back lapsed customers"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeBody[[]string](t, rec)
	if len(got) == 0 {
		t.Fatal("no suggestions returned")
	}
}
