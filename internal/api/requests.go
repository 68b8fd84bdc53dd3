package api

import (
	"context"
	"fmt"
	"net/url"
)

// Order represents a delivery order.
type Order map[string]interface{}

// Product represents a catalogue product.
type Product map[string]interface{}

// InventoryItem represents stock held by a distributor or technician.
type InventoryItem map[string]interface{}

// Profile represents the logged-in user as the API sees them.
type Profile map[string]interface{}

// GetProfile retrieves the current user's profile.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	resp, err := c.request(ctx, "GET", "/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		User Profile `json:"user"`
	}
	if err := decode(resp, &result, "profile"); err != nil {
		return nil, err
	}
	return result.User, nil
}

// ListOrders retrieves orders visible to the current user.
func (c *Client) ListOrders(ctx context.Context, params map[string]string) ([]Order, error) {
	resp, err := c.request(ctx, "GET", "/orders", nil, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Orders []Order `json:"orders"`
	}
	if err := decode(resp, &result, "orders"); err != nil {
		return nil, err
	}
	return result.Orders, nil
}

// GetOrder retrieves a specific order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	resp, err := c.request(ctx, "GET", fmt.Sprintf("/orders/%s", url.PathEscape(orderID)), nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Order Order `json:"order"`
	}
	if err := decode(resp, &result, "order"); err != nil {
		return nil, err
	}
	return result.Order, nil
}

// UpdateOrderStatus moves an order to a new status, e.g. "picked-up" or
// "delivered".
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (Order, error) {
	body := map[string]string{"status": status}
	resp, err := c.request(ctx, "PATCH", fmt.Sprintf("/orders/%s/status", url.PathEscape(orderID)), body, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Order Order `json:"order"`
	}
	if err := decode(resp, &result, "order"); err != nil {
		return nil, err
	}
	return result.Order, nil
}

// ListProducts retrieves the product catalogue.
func (c *Client) ListProducts(ctx context.Context, params map[string]string) ([]Product, error) {
	resp, err := c.request(ctx, "GET", "/products", nil, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Products []Product `json:"products"`
	}
	if err := decode(resp, &result, "products"); err != nil {
		return nil, err
	}
	return result.Products, nil
}

// GetProduct retrieves a specific product.
func (c *Client) GetProduct(ctx context.Context, productID string) (Product, error) {
	resp, err := c.request(ctx, "GET", fmt.Sprintf("/products/%s", url.PathEscape(productID)), nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Product Product `json:"product"`
	}
	if err := decode(resp, &result, "product"); err != nil {
		return nil, err
	}
	return result.Product, nil
}

// ListInventory retrieves the current user's stock.
func (c *Client) ListInventory(ctx context.Context, params map[string]string) ([]InventoryItem, error) {
	resp, err := c.request(ctx, "GET", "/inventory", nil, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []InventoryItem `json:"items"`
	}
	if err := decode(resp, &result, "inventory"); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// AdjustInventory changes the stock of a SKU by delta units.
func (c *Client) AdjustInventory(ctx context.Context, sku string, delta int) (InventoryItem, error) {
	body := map[string]interface{}{"delta": delta}
	resp, err := c.request(ctx, "POST", fmt.Sprintf("/inventory/%s/adjust", url.PathEscape(sku)), body, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Item InventoryItem `json:"item"`
	}
	if err := decode(resp, &result, "inventory item"); err != nil {
		return nil, err
	}
	return result.Item, nil
}
