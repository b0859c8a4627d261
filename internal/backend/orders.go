package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/homecook/storefront/internal/order"
)

// PlaceOrder stores o and returns its new id.
func (c *Client) PlaceOrder(ctx context.Context, o order.Order) (string, error) {
	var res insertResult
	if err := c.send(ctx, http.MethodPost, "/orders", o, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (order.Order, error) {
	var o order.Order
	err := c.get(ctx, "/orders/"+url.PathEscape(id), &o)
	return o, err
}

// OrdersByCustomer returns the orders placed by email.
func (c *Client) OrdersByCustomer(ctx context.Context, email string) ([]order.Order, error) {
	var orders []order.Order
	if err := c.get(ctx, "/orders/user/"+url.PathEscape(email), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListOrders returns every order. The backend does not filter by chef.
func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	if err := c.get(ctx, "/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderStatus asks the backend to move the order to status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	body := map[string]string{"status": status}
	return c.send(ctx, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", body, nil)
}
