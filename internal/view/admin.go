package view

import (
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
)

// UserRow is one line of the admin users table.
type UserRow struct {
	order.User
	Actions []Action `json:"actions"`
}

// Users builds the admin users table. An admin cannot demote or delete themself.
func Users(users []order.User, admin lifecycle.Actor) []UserRow {
	out := make([]UserRow, 0, len(users))
	for _, u := range users {
		self := u.Email == admin.Email
		out = append(out, UserRow{
			User: u,
			Actions: []Action{
				enabled("make_admin", u.Role != enum.RoleAdmin, "Already an admin"),
				enabled("make_chef", u.Role != enum.RoleChef && !self, roleReason(u.Role == enum.RoleChef, self, "Already a chef")),
				enabled("delete_user", !self, "You cannot delete your own account"),
			},
		})
	}
	return out
}

func roleReason(same, self bool, sameMsg string) string {
	if self {
		return "You cannot change your own role"
	}
	if same {
		return sameMsg
	}
	return ""
}

// RequestRow is one line of the role-request table. Requests are actionable
// only while pending.
type RequestRow struct {
	order.RoleRequest
	Actions []Action `json:"actions"`
}

func Requests(reqs []order.RoleRequest) []RequestRow {
	out := make([]RequestRow, 0, len(reqs))
	for _, r := range reqs {
		pending := r.Status == enum.RequestStatusPending
		out = append(out, RequestRow{
			RoleRequest: r,
			Actions: []Action{
				enabled(enum.RequestActionApprove, pending, "Already "+r.Status),
				enabled(enum.RequestActionReject, pending, "Already "+r.Status),
			},
		})
	}
	return out
}
