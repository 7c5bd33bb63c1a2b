package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stripe-erp-sync/internal/application/ports"
	"github.com/jhoicas/stripe-erp-sync/internal/domain"
	"github.com/jhoicas/stripe-erp-sync/internal/domain/entity"
	"github.com/jhoicas/stripe-erp-sync/internal/infrastructure/metrics"
)

var _ ports.ERPClient = (*Client)(nil)

// DocTypes y campos del API de recursos del ERP.
const (
	doctypeCustomer     = "Customer"
	doctypeSalesInvoice = "Sales Invoice"
	doctypeSubscription = "Subscription"

	fieldCustomerEmail        = "email_id"
	fieldStripeSubscriptionID = "stripe_subscription_id"

	customerTypeIndividual = "Individual"
	remarksPrefix          = "Stripe Invoice ID: "

	maxResponseBytes = 1 << 20
	maxLoggedBody    = 2048
)

// Config configuración del cliente REST.
type Config struct {
	BaseURL         string
	APIKey          string
	APISecret       string
	Timeout         time.Duration
	InvoiceItemName string
	HTTPClient      *http.Client // opcional; tests
}

// Client implementa ports.ERPClient sobre el API /api/resource/<DocType>.
// Usa net/http de la librería estándar; no guarda estado mutable entre llamadas.
type Client struct {
	baseURL    string
	authHeader string
	itemName   string
	httpClient *http.Client
}

// NewClient construye el cliente. Timeout 0 usa 15 s.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	itemName := cfg.InvoiceItemName
	if itemName == "" {
		itemName = "Stripe Subscription"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: fmt.Sprintf("token %s:%s", cfg.APIKey, cfg.APISecret),
		itemName:   itemName,
		httpClient: httpClient,
	}
}

// ── Estructuras del protocolo ────────────────────────────────────────────────

type listResponse struct {
	Data []struct {
		Name string `json:"name"`
	} `json:"data"`
}

type docResponse struct {
	Data *struct {
		Name string `json:"name"`
	} `json:"data"`
}

type customerDoc struct {
	CustomerName string `json:"customer_name"`
	CustomerType string `json:"customer_type"`
	EmailID      string `json:"email_id"`
}

type invoiceItem struct {
	ItemName string      `json:"item_name"`
	Qty      int         `json:"qty"`
	Rate     json.Number `json:"rate"`
}

type salesInvoiceDoc struct {
	Customer string        `json:"customer"`
	Items    []invoiceItem `json:"items"`
	IsPaid   int           `json:"is_paid"`
	Remarks  string        `json:"remarks"`
	DueDate  string        `json:"due_date"`
	Currency string        `json:"currency,omitempty"`
}

type subscriptionPlan struct {
	Plan string `json:"plan"`
	Qty  int    `json:"qty"`
}

type subscriptionDoc struct {
	PartyType            string             `json:"party_type"`
	Party                string             `json:"party"`
	StripeSubscriptionID string             `json:"stripe_subscription_id"`
	Status               string             `json:"status"`
	Plans                []subscriptionPlan `json:"plans"`
}

type statusUpdate struct {
	Status string `json:"status"`
}

// rawResponse respuesta cruda: se conserva el cuerpo para diagnóstico.
type rawResponse struct {
	status int
	body   []byte
}

func (r *rawResponse) ok() bool { return r.status >= 200 && r.status < 300 }

// ── Operaciones ──────────────────────────────────────────────────────────────

// ResolveCustomer get-or-create por email exacto.
// Lista vacía o respuesta ilegible -> se crea. Error de red en la búsqueda -> ErrErpUnavailable sin crear.
func (c *Client) ResolveCustomer(ctx context.Context, email string) (string, error) {
	log := zerolog.Ctx(ctx)

	name, err := c.findOne(ctx, "customer_lookup", doctypeCustomer, fieldCustomerEmail, email)
	switch {
	case err == nil && name != "":
		return name, nil
	case err == nil:
		log.Debug().Str("email", email).Msg("cliente no existe en ERP, se crea")
	case errors.Is(err, domain.ErrUnparseableResponse):
		log.Warn().Err(err).Str("email", email).Msg("búsqueda de cliente ilegible, se intenta crear")
	default:
		return "", err
	}

	resp, err := c.do(ctx, "customer_create", http.MethodPost, c.resourceURL(doctypeCustomer, ""), nil, customerDoc{
		CustomerName: email,
		CustomerType: customerTypeIndividual,
		EmailID:      email,
	})
	if err != nil {
		return "", err
	}
	name, err = parseDocName(resp)
	if err != nil {
		c.logBadResponse(ctx, "customer_create", resp)
		return "", fmt.Errorf("%w: crear cliente: %w", domain.ErrErpUnavailable, err)
	}
	log.Info().Str("email", email).Str("erp_customer", name).Msg("cliente creado en ERP")
	return name, nil
}

// CreateInvoice registra una factura de venta pagada con una sola línea.
func (c *Client) CreateInvoice(ctx context.Context, inv entity.InvoiceRecord) error {
	doc := salesInvoiceDoc{
		Customer: inv.CustomerID,
		Items: []invoiceItem{{
			ItemName: c.itemName,
			Qty:      1,
			Rate:     json.Number(inv.Amount.StringFixed(2)),
		}},
		IsPaid:   1,
		Remarks:  remarksPrefix + inv.ProviderInvoiceID,
		DueDate:  inv.DueDate.Format(time.DateOnly),
		Currency: strings.ToUpper(inv.Currency),
	}
	return c.create(ctx, "invoice_create", doctypeSalesInvoice, doc)
}

// CreateSubscription registra la suscripción con el plan fijo configurado.
func (c *Client) CreateSubscription(ctx context.Context, sub entity.SubscriptionRecord) error {
	doc := subscriptionDoc{
		PartyType:            doctypeCustomer,
		Party:                sub.CustomerID,
		StripeSubscriptionID: sub.ProviderSubscriptionID,
		Status:               string(sub.Status),
		Plans:                []subscriptionPlan{{Plan: sub.Plan, Qty: 1}},
	}
	return c.create(ctx, "subscription_create", doctypeSubscription, doc)
}

// CancelSubscription busca por ID de Stripe y marca la suscripción como Cancelled.
// Sin coincidencia devuelve domain.ErrNotFound.
func (c *Client) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	name, err := c.findOne(ctx, "subscription_lookup", doctypeSubscription, fieldStripeSubscriptionID, providerSubscriptionID)
	if err != nil {
		if errors.Is(err, domain.ErrUnparseableResponse) {
			return fmt.Errorf("%w: %w", domain.ErrErpUnavailable, err)
		}
		return err
	}
	if name == "" {
		return domain.ErrNotFound
	}

	resp, err := c.do(ctx, "subscription_cancel", http.MethodPut, c.resourceURL(doctypeSubscription, name), nil,
		statusUpdate{Status: string(entity.SubscriptionCancelled)})
	if err != nil {
		return err
	}
	if !resp.ok() {
		c.logBadResponse(ctx, "subscription_cancel", resp)
		return fmt.Errorf("%w: cancelar suscripción %s: HTTP %d", domain.ErrErpUnavailable, name, resp.status)
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (c *Client) create(ctx context.Context, op, doctype string, doc any) error {
	resp, err := c.do(ctx, op, http.MethodPost, c.resourceURL(doctype, ""), nil, doc)
	if err != nil {
		return err
	}
	name, err := parseDocName(resp)
	if err != nil {
		c.logBadResponse(ctx, op, resp)
		return fmt.Errorf("%w: crear %s: %w", domain.ErrErpUnavailable, doctype, err)
	}
	zerolog.Ctx(ctx).Debug().Str("doctype", doctype).Str("name", name).Msg("documento creado en ERP")
	return nil
}

// findOne devuelve el name del primer documento con field == value, "" si no hay.
func (c *Client) findOne(ctx context.Context, op, doctype, field, value string) (string, error) {
	filters, err := json.Marshal([][]string{{doctype, field, "=", value}})
	if err != nil {
		return "", fmt.Errorf("erp: serializar filtros: %w", err)
	}
	q := url.Values{}
	q.Set("filters", string(filters))
	q.Set("fields", `["name"]`)

	resp, err := c.do(ctx, op, http.MethodGet, c.resourceURL(doctype, ""), q, nil)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		c.logBadResponse(ctx, op, resp)
		return "", fmt.Errorf("%w: HTTP %d", domain.ErrUnparseableResponse, resp.status)
	}

	var list listResponse
	if err := json.Unmarshal(resp.body, &list); err != nil {
		c.logBadResponse(ctx, op, resp)
		return "", fmt.Errorf("%w: %v", domain.ErrUnparseableResponse, err)
	}
	for _, d := range list.Data {
		if d.Name != "" {
			return d.Name, nil
		}
	}
	return "", nil
}

func parseDocName(resp *rawResponse) (string, error) {
	if !resp.ok() {
		return "", fmt.Errorf("%w: HTTP %d", domain.ErrUnparseableResponse, resp.status)
	}
	var doc docResponse
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnparseableResponse, err)
	}
	if doc.Data == nil || doc.Data.Name == "" {
		return "", fmt.Errorf("%w: data.name ausente", domain.ErrUnparseableResponse)
	}
	return doc.Data.Name, nil
}

func (c *Client) resourceURL(doctype, name string) string {
	u := c.baseURL + "/api/resource/" + url.PathEscape(doctype)
	if name != "" {
		u += "/" + url.PathEscape(name)
	}
	return u
}

// do ejecuta la petición. Solo los errores de transporte se devuelven como error
// (envolviendo domain.ErrErpUnavailable); los códigos HTTP se interpretan arriba.
func (c *Client) do(ctx context.Context, op, method, endpoint string, query url.Values, body any) (*rawResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erp: serializar %s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("erp: crear request %s: %w", op, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveERPRequest(op, "transport_error", time.Since(start))
		zerolog.Ctx(ctx).Error().Err(err).Str("operation", op).Msg("llamada al ERP fallida")
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrErpUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.ObserveERPRequest(op, "transport_error", time.Since(start))
		return nil, fmt.Errorf("%w: %s: leer respuesta: %v", domain.ErrErpUnavailable, op, err)
	}

	result := "ok"
	if resp.StatusCode >= 300 {
		result = "http_error"
	}
	metrics.ObserveERPRequest(op, result, time.Since(start))
	return &rawResponse{status: resp.StatusCode, body: raw}, nil
}

func (c *Client) logBadResponse(ctx context.Context, op string, resp *rawResponse) {
	body := string(resp.body)
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody] + "…"
	}
	zerolog.Ctx(ctx).Error().
		Str("operation", op).
		Int("status", resp.status).
		Str("body", body).
		Msg("respuesta del ERP no interpretable")
}
