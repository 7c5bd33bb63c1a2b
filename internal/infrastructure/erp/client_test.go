package erp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stripe-erp-sync/internal/domain"
	"github.com/jhoicas/stripe-erp-sync/internal/domain/entity"
	"github.com/jhoicas/stripe-erp-sync/internal/infrastructure/erp"
)

// ──────────────────────────────────────────────────────────────────────────────
// ERP falso: API /api/resource/<DocType> en memoria
// ──────────────────────────────────────────────────────────────────────────────

type fakeERPServer struct {
	t  *testing.T
	mu sync.Mutex

	docs     map[string][]map[string]interface{} // doctype -> documentos
	seq      int
	requests []string

	brokenLookup bool // GET devuelve HTML en lugar de JSON
	brokenCreate bool // POST devuelve 500
}

func newFakeERPServer(t *testing.T) (*fakeERPServer, *httptest.Server) {
	f := &fakeERPServer{t: t, docs: map[string][]map[string]interface{}{}}
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeERPServer) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(f.t, "token key:secret", r.Header.Get("Authorization"))
	assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	rest := strings.TrimPrefix(r.URL.Path, "/api/resource/")
	doctype, name, _ := strings.Cut(rest, "/")
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		if f.brokenLookup {
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, "<html>502 Bad Gateway</html>")
			return
		}
		var filters [][]string
		require.NoError(f.t, json.Unmarshal([]byte(r.URL.Query().Get("filters")), &filters))
		require.Len(f.t, filters, 1)
		field, value := filters[0][1], filters[0][3]
		out := []map[string]interface{}{}
		for _, d := range f.docs[doctype] {
			if d[field] == value {
				out = append(out, map[string]interface{}{"name": d["name"]})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": out})
	case http.MethodPost:
		if f.brokenCreate {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"exc_type":"ValidationError"}`)
			return
		}
		var doc map[string]interface{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&doc))
		f.seq++
		doc["name"] = fmt.Sprintf("%s-%04d", strings.ToUpper(strings.ReplaceAll(doctype, " ", "-")), f.seq)
		f.docs[doctype] = append(f.docs[doctype], doc)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": doc})
	case http.MethodPut:
		var patch map[string]interface{}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch))
		for _, d := range f.docs[doctype] {
			if d["name"] == name {
				for k, v := range patch {
					d[k] = v
				}
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": d})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeERPServer) count(doctype string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[doctype])
}

func (f *fakeERPServer) doc(doctype string, i int) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[doctype][i]
}

func newTestClient(url string) *erp.Client {
	return erp.NewClient(erp.Config{BaseURL: url + "/", APIKey: "key", APISecret: "secret", Timeout: 2 * time.Second})
}

// ──────────────────────────────────────────────────────────────────────────────
// ResolveCustomer
// ──────────────────────────────────────────────────────────────────────────────

func TestResolveCustomer_Idempotente(t *testing.T) {
	f, srv := newFakeERPServer(t)
	c := newTestClient(srv.URL)

	id1, err := c.ResolveCustomer(context.Background(), "a@x.com")
	require.NoError(t, err)
	id2, err := c.ResolveCustomer(context.Background(), "a@x.com")
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "el mismo email debe resolver al mismo cliente")
	assert.Equal(t, 1, f.count("Customer"), "no debe crear clientes duplicados")

	doc := f.doc("Customer", 0)
	assert.Equal(t, "a@x.com", doc["customer_name"])
	assert.Equal(t, "a@x.com", doc["email_id"])
	assert.Equal(t, "Individual", doc["customer_type"])
}

func TestResolveCustomer_EmailConCaracteresEspeciales(t *testing.T) {
	f, srv := newFakeERPServer(t)
	c := newTestClient(srv.URL)

	email := `o'neil+"test"@x.com`
	id1, err := c.ResolveCustomer(context.Background(), email)
	require.NoError(t, err)
	id2, err := c.ResolveCustomer(context.Background(), email)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, f.count("Customer"))
}

func TestResolveCustomer_BusquedaIlegibleCrea(t *testing.T) {
	f, srv := newFakeERPServer(t)
	f.brokenLookup = true

	id, err := newTestClient(srv.URL).ResolveCustomer(context.Background(), "b@y.com")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, f.count("Customer"))
}

func TestResolveCustomer_CreacionFallida(t *testing.T) {
	f, srv := newFakeERPServer(t)
	f.brokenCreate = true

	id, err := newTestClient(srv.URL).ResolveCustomer(context.Background(), "c@z.com")
	assert.Empty(t, id)
	assert.ErrorIs(t, err, domain.ErrErpUnavailable)
	assert.ErrorIs(t, err, domain.ErrUnparseableResponse)
}

func TestResolveCustomer_ERPCaidoNoCrea(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).ResolveCustomer(context.Background(), "d@z.com")
	assert.ErrorIs(t, err, domain.ErrErpUnavailable)
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateInvoice / CreateSubscription / CancelSubscription
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateInvoice_Payload(t *testing.T) {
	f, srv := newFakeERPServer(t)
	c := newTestClient(srv.URL)

	due := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	err := c.CreateInvoice(context.Background(), entity.InvoiceRecord{
		ProviderInvoiceID: "in_1",
		CustomerID:        "CUSTOMER-0001",
		Amount:            entity.AmountFromMinor(1999),
		Currency:          "usd",
		DueDate:           due,
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.count("Sales Invoice"))

	doc := f.doc("Sales Invoice", 0)
	assert.Equal(t, "CUSTOMER-0001", doc["customer"])
	assert.Equal(t, float64(1), doc["is_paid"])
	assert.Contains(t, doc["remarks"], "in_1")
	assert.Equal(t, "2026-03-17", doc["due_date"])
	assert.Equal(t, "USD", doc["currency"])

	items := doc["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, 19.99, item["rate"])
	assert.Equal(t, float64(1), item["qty"])
	assert.Equal(t, "Stripe Subscription", item["item_name"])
	assert.Contains(t, f.requests, "POST /api/resource/Sales Invoice")
}

func TestCreateInvoice_ERPRechaza(t *testing.T) {
	f, srv := newFakeERPServer(t)
	f.brokenCreate = true

	err := newTestClient(srv.URL).CreateInvoice(context.Background(), entity.InvoiceRecord{ProviderInvoiceID: "in_2"})
	assert.ErrorIs(t, err, domain.ErrErpUnavailable)
}

func TestSubscription_CrearYCancelar(t *testing.T) {
	f, srv := newFakeERPServer(t)
	c := newTestClient(srv.URL)

	err := c.CreateSubscription(context.Background(), entity.SubscriptionRecord{
		ProviderSubscriptionID: "sub_1",
		CustomerID:             "CUSTOMER-0001",
		Status:                 entity.SubscriptionActive,
		Plan:                   "Stripe Plan",
	})
	require.NoError(t, err)

	doc := f.doc("Subscription", 0)
	assert.Equal(t, "Customer", doc["party_type"])
	assert.Equal(t, "CUSTOMER-0001", doc["party"])
	assert.Equal(t, "sub_1", doc["stripe_subscription_id"])
	assert.Equal(t, "Active", doc["status"])

	require.NoError(t, c.CancelSubscription(context.Background(), "sub_1"))
	assert.Equal(t, "Cancelled", f.doc("Subscription", 0)["status"])
}

func TestCancelSubscription_NoExiste(t *testing.T) {
	_, srv := newFakeERPServer(t)

	err := newTestClient(srv.URL).CancelSubscription(context.Background(), "sub_desconocida")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelSubscription_BusquedaIlegible(t *testing.T) {
	f, srv := newFakeERPServer(t)
	f.brokenLookup = true

	err := newTestClient(srv.URL).CancelSubscription(context.Background(), "sub_1")
	assert.ErrorIs(t, err, domain.ErrErpUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

// El cliente es seguro para uso concurrente sobre entradas independientes.
func TestResolveCustomer_Concurrente(t *testing.T) {
	f, srv := newFakeERPServer(t)
	c := newTestClient(srv.URL)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.ResolveCustomer(context.Background(), fmt.Sprintf("user%d@x.com", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, f.count("Customer"))
}
