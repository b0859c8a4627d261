package order

import (
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
)

// User is the backend's account record. Role is one of enum.Role*.
type User struct {
	ID       string `json:"_id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	PhotoURL string `json:"photoURL,omitempty"`
	Address  string `json:"address,omitempty"`
	Status   string `json:"status,omitempty"`
}

// RoleRequest asks an admin to upgrade a user to chef or admin.
type RoleRequest struct {
	ID          string    `json:"_id,omitempty"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	UserEmail   string    `json:"userEmail"`
	RequestType string    `json:"requestType"`
	Status      string    `json:"requestStatus"`
	RequestedAt time.Time `json:"requestTime"`
}

// NewRoleRequest validates requestType and builds a pending request for u.
func NewRoleRequest(u User, requestType string, now time.Time) (RoleRequest, error) {
	if requestType != enum.RequestTypeChef && requestType != enum.RequestTypeAdmin {
		return RoleRequest{}, apperr.Validation("requestType", "request type must be chef or admin")
	}
	if u.Role == requestType {
		return RoleRequest{}, apperr.Validation("requestType", "user already has this role")
	}
	return RoleRequest{
		UserID:      u.ID,
		UserName:    u.Name,
		UserEmail:   u.Email,
		RequestType: requestType,
		Status:      enum.RequestStatusPending,
		RequestedAt: now.UTC(),
	}, nil
}

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	TotalUsers      int     `json:"totalUsers"`
	TotalPayments   float64 `json:"totalPayments"`
	OrdersPending   int     `json:"ordersPending"`
	OrdersDelivered int     `json:"ordersDelivered"`
}
