// Package erp is the enterprise-resource-planning mock domain:
// invoice management and inventory operations.
package erp

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcpgate/mcpgate/pkg/domains"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

type lineItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type invoice struct {
	ID          string     `json:"id"`
	Customer    string     `json:"customer"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	DueDate     string     `json:"due_date"`
	CreatedDate string     `json:"created_date"`
	Items       []lineItem `json:"items"`
}

type inventoryItem struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	Location     string  `json:"location"`
	ReorderPoint int     `json:"reorder_point"`
}

// Adapter serves the erp domain from in-memory fixtures.
type Adapter struct {
	mu        sync.RWMutex
	invoices  map[string]invoice
	inventory map[string]inventoryItem
	handlers  map[string]domains.Handler
}

// New creates the erp adapter with its seed dataset.
func New() *Adapter {
	a := &Adapter{
		invoices: map[string]invoice{
			"INV-001": {
				ID: "INV-001", Customer: "Acme Corp", Amount: 15000.00, Currency: "USD",
				Status: "paid", DueDate: "2026-01-15", CreatedDate: "2025-12-15",
				Items: []lineItem{
					{Description: "Consulting Services", Quantity: 10, UnitPrice: 1500},
				},
			},
			"INV-002": {
				ID: "INV-002", Customer: "Tech Solutions Inc", Amount: 8500.00, Currency: "USD",
				Status: "pending", DueDate: "2026-02-28", CreatedDate: "2026-01-28",
				Items: []lineItem{
					{Description: "Software License", Quantity: 5, UnitPrice: 1500},
					{Description: "Support Package", Quantity: 1, UnitPrice: 1000},
				},
			},
		},
		inventory: map[string]inventoryItem{
			"SKU-001": {
				SKU: "SKU-001", Name: "Widget A", Category: "Components", Quantity: 500,
				UnitPrice: 25.00, Location: "Warehouse A", ReorderPoint: 100,
			},
			"SKU-002": {
				SKU: "SKU-002", Name: "Gadget B", Category: "Finished Goods", Quantity: 150,
				UnitPrice: 199.99, Location: "Warehouse B", ReorderPoint: 50,
			},
			"SKU-003": {
				SKU: "SKU-003", Name: "Component C", Category: "Components", Quantity: 25,
				UnitPrice: 75.00, Location: "Warehouse A", ReorderPoint: 50,
			},
		},
	}
	a.handlers = map[string]domains.Handler{
		"get_invoice":      a.getInvoice,
		"create_invoice":   a.createInvoice,
		"list_invoices":    a.listInvoices,
		"get_inventory":    a.getInventory,
		"check_low_stock":  a.checkLowStock,
		"update_inventory": a.updateInventory,
	}
	return a
}

// Domain returns the adapter's domain name.
func (a *Adapter) Domain() string { return "erp" }

// Execute dispatches one erp action.
func (a *Adapter) Execute(ctx context.Context, action string, params map[string]interface{}, execCtx tool.ExecutionContext) (interface{}, error) {
	log.Debug().Str("action", action).Str("user_id", execCtx.Identity.ID).Msg("ERP action")
	return domains.Dispatch(ctx, "erp", action, a.handlers, params, execCtx)
}

// Tools returns the erp tool definitions.
func (a *Adapter) Tools() []tool.Definition {
	return []tool.Definition{
		{
			Name:        "get_invoice",
			Domain:      "erp",
			Description: "Retrieve an invoice by its ID. Returns invoice details including customer, amount, status, and line items.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"invoice_id": map[string]interface{}{
					"type":        "string",
					"description": "The invoice ID (e.g., INV-001)",
				},
			}, "invoice_id"),
			ExecutionType: tool.ExecutionRead,
			Permissions: tool.Permission{
				Level: tool.LevelUser,
				Roles: []string{"finance", "sales"},
			},
		},
		{
			Name:        "create_invoice",
			Domain:      "erp",
			Description: "Create a new invoice for a customer. Requires customer name, items, and payment terms.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"customer": map[string]interface{}{
					"type":        "string",
					"description": "Customer name",
				},
				"items": map[string]interface{}{
					"type":        "array",
					"description": "Invoice line items",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"description": map[string]interface{}{"type": "string"},
							"quantity":    map[string]interface{}{"type": "integer"},
							"unit_price":  map[string]interface{}{"type": "number"},
						},
						"required": []string{"description", "quantity", "unit_price"},
					},
				},
				"due_days": map[string]interface{}{
					"type":        "integer",
					"description": "Payment due in days",
					"default":     30,
				},
				"currency": map[string]interface{}{
					"type":        "string",
					"description": "Currency code",
					"default":     "USD",
				},
			}, "customer", "items"),
			ExecutionType: tool.ExecutionWrite,
			Permissions: tool.Permission{
				Level:  tool.LevelUser,
				Roles:  []string{"finance", "sales"},
				Scopes: []string{"erp:write"},
			},
		},
		{
			Name:        "list_invoices",
			Domain:      "erp",
			Description: "List invoices with optional filters for status and customer.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Filter by status",
					"enum":        []string{"pending", "paid", "overdue", "cancelled"},
				},
				"customer": map[string]interface{}{
					"type":        "string",
					"description": "Filter by customer name",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum results",
					"default":     20,
				},
			}),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "get_inventory",
			Domain:      "erp",
			Description: "Get inventory information for a specific SKU.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"sku": map[string]interface{}{
					"type":        "string",
					"description": "Stock Keeping Unit identifier",
				},
			}, "sku"),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "check_low_stock",
			Domain:      "erp",
			Description: "Check for items with inventory below reorder point.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Filter by category",
				},
			}),
			ExecutionType: tool.ExecutionRead,
			Permissions:   tool.Permission{Level: tool.LevelUser},
		},
		{
			Name:        "update_inventory",
			Domain:      "erp",
			Description: "Update inventory quantity for a SKU. Use positive values to add stock, negative to remove.",
			Version:     "1.0.0",
			InputSchema: domains.ObjectSchema(map[string]interface{}{
				"sku": map[string]interface{}{
					"type":        "string",
					"description": "Stock Keeping Unit identifier",
				},
				"quantity_change": map[string]interface{}{
					"type":        "integer",
					"description": "Quantity to add (positive) or remove (negative)",
				},
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Reason for inventory change",
				},
			}, "sku", "quantity_change"),
			ExecutionType: tool.ExecutionWrite,
			Permissions: tool.Permission{
				Level:  tool.LevelUser,
				Roles:  []string{"inventory", "warehouse"},
				Scopes: []string{"erp:write"},
			},
		},
	}
}

func (a *Adapter) getInvoice(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	id := domains.StrParam(params, "invoice_id", "")
	if id == "" {
		return nil, domains.Invalidf("invoice_id is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	inv, ok := a.invoices[id]
	if !ok {
		return nil, domains.Invalidf("Invoice %s not found", id)
	}
	return inv, nil
}

func (a *Adapter) createInvoice(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	customer := domains.StrParam(params, "customer", "")
	if customer == "" {
		return nil, domains.Invalidf("customer is required")
	}

	rawItems, _ := params["items"].([]interface{})
	if len(rawItems) == 0 {
		return nil, domains.Invalidf("at least one item is required")
	}

	items := make([]lineItem, 0, len(rawItems))
	total := 0.0
	for _, raw := range rawItems {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, domains.Invalidf("invalid invoice item")
		}
		qty := domains.IntParam(m, "quantity", 0)
		price, _ := m["unit_price"].(float64)
		items = append(items, lineItem{
			Description: domains.StrParam(m, "description", ""),
			Quantity:    qty,
			UnitPrice:   price,
		})
		total += float64(qty) * price
	}

	dueDays := domains.IntParam(params, "due_days", 30)
	currency := domains.StrParam(params, "currency", "USD")

	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.newInvoiceID()
	now := time.Now().UTC()
	a.invoices[id] = invoice{
		ID:          id,
		Customer:    customer,
		Amount:      total,
		Currency:    currency,
		Status:      "pending",
		DueDate:     now.AddDate(0, 0, dueDays).Format("2006-01-02"),
		CreatedDate: now.Format("2006-01-02"),
		Items:       items,
	}

	return map[string]interface{}{
		"success":    true,
		"invoice_id": id,
		"amount":     total,
		"currency":   currency,
	}, nil
}

// newInvoiceID mints an unused INV-nnn id. Caller holds the lock.
func (a *Adapter) newInvoiceID() string {
	for {
		id := fmt.Sprintf("INV-%03d", rand.Intn(1000))
		if _, taken := a.invoices[id]; !taken {
			return id
		}
	}
}

func (a *Adapter) listInvoices(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	statusFilter := domains.StrParam(params, "status", "")
	customerFilter := domains.StrParam(params, "customer", "")
	limit := domains.IntParam(params, "limit", 20)

	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.invoices))
	for id := range a.invoices {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := []map[string]interface{}{}
	for _, id := range ids {
		inv := a.invoices[id]
		if statusFilter != "" && inv.Status != statusFilter {
			continue
		}
		if customerFilter != "" && !strings.Contains(strings.ToLower(inv.Customer), strings.ToLower(customerFilter)) {
			continue
		}
		results = append(results, map[string]interface{}{
			"id":       inv.ID,
			"customer": inv.Customer,
			"amount":   inv.Amount,
			"currency": inv.Currency,
			"status":   inv.Status,
			"due_date": inv.DueDate,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (a *Adapter) getInventory(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	sku := domains.StrParam(params, "sku", "")
	if sku == "" {
		return nil, domains.Invalidf("sku is required")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	item, ok := a.inventory[sku]
	if !ok {
		return nil, domains.Invalidf("SKU %s not found", sku)
	}
	return item, nil
}

func (a *Adapter) checkLowStock(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	categoryFilter := domains.StrParam(params, "category", "")

	a.mu.RLock()
	defer a.mu.RUnlock()

	skus := make([]string, 0, len(a.inventory))
	for sku := range a.inventory {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	lowStock := []map[string]interface{}{}
	for _, sku := range skus {
		item := a.inventory[sku]
		if categoryFilter != "" && item.Category != categoryFilter {
			continue
		}
		if item.Quantity <= item.ReorderPoint {
			lowStock = append(lowStock, map[string]interface{}{
				"sku":           item.SKU,
				"name":          item.Name,
				"category":      item.Category,
				"quantity":      item.Quantity,
				"reorder_point": item.ReorderPoint,
				"location":      item.Location,
			})
		}
	}
	return lowStock, nil
}

func (a *Adapter) updateInventory(params map[string]interface{}, _ tool.ExecutionContext) (interface{}, error) {
	sku := domains.StrParam(params, "sku", "")
	if sku == "" {
		return nil, domains.Invalidf("sku is required")
	}
	if _, ok := params["quantity_change"]; !ok {
		return nil, domains.Invalidf("quantity_change is required")
	}
	change := domains.IntParam(params, "quantity_change", 0)
	reason := domains.StrParam(params, "reason", "Manual adjustment")

	a.mu.Lock()
	defer a.mu.Unlock()

	item, ok := a.inventory[sku]
	if !ok {
		return nil, domains.Invalidf("SKU %s not found", sku)
	}

	newQuantity := item.Quantity + change
	if newQuantity < 0 {
		return nil, domains.Invalidf("Cannot reduce inventory below 0. Current: %d", item.Quantity)
	}

	previous := item.Quantity
	item.Quantity = newQuantity
	a.inventory[sku] = item

	return map[string]interface{}{
		"success":           true,
		"sku":               sku,
		"previous_quantity": previous,
		"new_quantity":      newQuantity,
		"reason":            reason,
	}, nil
}
