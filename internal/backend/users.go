package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/homecook/storefront/internal/order"
)

func (c *Client) GetUser(ctx context.Context, email string) (order.User, error) {
	var u order.User
	err := c.get(ctx, "/users/"+url.PathEscape(email), &u)
	return u, err
}

func (c *Client) ListUsers(ctx context.Context) ([]order.User, error) {
	var users []order.User
	if err := c.get(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser registers u and returns its id.
func (c *Client) CreateUser(ctx context.Context, u order.User) (string, error) {
	var res insertResult
	if err := c.send(ctx, http.MethodPost, "/users", u, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (c *Client) SetUserRole(ctx context.Context, id, role string) error {
	body := map[string]string{"role": role}
	return c.send(ctx, http.MethodPatch, "/users/role/"+url.PathEscape(id), body, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

// CreateRoleRequest files a request to become a chef or admin.
func (c *Client) CreateRoleRequest(ctx context.Context, rr order.RoleRequest) (string, error) {
	var res insertResult
	if err := c.send(ctx, http.MethodPost, "/requests", rr, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (c *Client) ListRoleRequests(ctx context.Context) ([]order.RoleRequest, error) {
	var reqs []order.RoleRequest
	if err := c.get(ctx, "/role-requests", &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ResolveRoleRequest approves or rejects a pending request.
func (c *Client) ResolveRoleRequest(ctx context.Context, id, action string) error {
	body := map[string]string{"action": action}
	return c.send(ctx, http.MethodPatch, "/role-requests/"+url.PathEscape(id), body, nil)
}

func (c *Client) PlatformStats(ctx context.Context) (order.PlatformStats, error) {
	var s order.PlatformStats
	err := c.get(ctx, "/admin/platform-stats", &s)
	return s, err
}
