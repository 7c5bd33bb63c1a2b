package webhook_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jhoicas/stripe-erp-sync/internal/domain"
	"github.com/jhoicas/stripe-erp-sync/internal/domain/entity"
)

// fakeERP implementa ports.ERPClient en memoria con semántica get-or-create.
type fakeERP struct {
	mu            sync.Mutex
	customers     map[string]string // email -> id
	subscriptions map[string]entity.SubscriptionRecord
	invoices      []entity.InvoiceRecord
	cancelled     []string
	createdCount  int
	failResolve   bool
	failInvoice   bool
}

func newFakeERP() *fakeERP {
	return &fakeERP{
		customers:     map[string]string{},
		subscriptions: map[string]entity.SubscriptionRecord{},
	}
}

func (f *fakeERP) ResolveCustomer(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failResolve {
		return "", domain.ErrErpUnavailable
	}
	if id, ok := f.customers[email]; ok {
		return id, nil
	}
	f.createdCount++
	id := fmt.Sprintf("CUST-%04d", f.createdCount)
	f.customers[email] = id
	return id, nil
}

func (f *fakeERP) CreateInvoice(_ context.Context, inv entity.InvoiceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInvoice {
		return fmt.Errorf("%w: 500", domain.ErrErpUnavailable)
	}
	f.invoices = append(f.invoices, inv)
	return nil
}

func (f *fakeERP) CreateSubscription(_ context.Context, sub entity.SubscriptionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions[sub.ProviderSubscriptionID] = sub
	return nil
}

func (f *fakeERP) CancelSubscription(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sub.Status = entity.SubscriptionCancelled
	f.subscriptions[id] = sub
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeERP) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createdCount + len(f.invoices) + len(f.subscriptions) + len(f.cancelled)
}

// fakeDirectory implementa ports.CustomerDirectory.
type fakeDirectory struct {
	emails  map[string]string
	err     error
	lookups int
}

func (f *fakeDirectory) LookupEmail(_ context.Context, id string) (string, error) {
	f.lookups++
	if f.err != nil {
		return "", f.err
	}
	return f.emails[id], nil
}

// fakeVerifier devuelve el evento configurado o un error de firma.
type fakeVerifier struct {
	event *entity.WebhookEvent
	err   error
}

func (f fakeVerifier) Verify([]byte, string) (*entity.WebhookEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

// memLedger implementa ports.EventLedger en memoria.
type memLedger struct {
	seen     map[string]bool
	err      error
	released []string
}

func (m *memLedger) Claim(_ context.Context, id, _ string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func (m *memLedger) Release(_ context.Context, id string) error {
	delete(m.seen, id)
	m.released = append(m.released, id)
	return nil
}

var errProviderDown = errors.New("stripe: connection refused")
