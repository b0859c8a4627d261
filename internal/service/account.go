package service

import (
	"context"
	"fmt"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/view"
)

// AccountStore defines the backend calls for accounts and role requests.
type AccountStore interface {
	GetUser(ctx context.Context, email string) (order.User, error)
	ListUsers(ctx context.Context) ([]order.User, error)
	SetUserRole(ctx context.Context, id, role string) error
	DeleteUser(ctx context.Context, id string) error
	CreateRoleRequest(ctx context.Context, rr order.RoleRequest) (string, error)
	ListRoleRequests(ctx context.Context) ([]order.RoleRequest, error)
	ResolveRoleRequest(ctx context.Context, id, action string) error
	PlatformStats(ctx context.Context) (order.PlatformStats, error)
}

// AccountService handles profiles, role requests and the admin console.
type AccountService struct {
	store AccountStore
	caps  lifecycle.Capabilities
	now   func() time.Time
}

func NewAccountService(store AccountStore, caps lifecycle.Capabilities) *AccountService {
	return &AccountService{store: store, caps: caps, now: time.Now}
}

// Profile returns the actor's own account.
func (s *AccountService) Profile(ctx context.Context, a lifecycle.Actor) (*order.User, error) {
	u, err := s.store.GetUser(ctx, a.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// RequestRole files a request to become a chef or admin.
func (s *AccountService) RequestRole(ctx context.Context, a lifecycle.Actor, requestType string) (*order.RoleRequest, error) {
	if !s.caps.Can(a.Role, enum.ActionRequestRole) {
		return nil, fmt.Errorf("%w: %s cannot request a role", apperr.ErrForbidden, a.Role)
	}
	u, err := s.store.GetUser(ctx, a.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	rr, err := order.NewRoleRequest(u, requestType, s.now())
	if err != nil {
		return nil, err
	}
	rr.ID, err = s.store.CreateRoleRequest(ctx, rr)
	if err != nil {
		return nil, fmt.Errorf("create role request: %w", err)
	}
	return &rr, nil
}

// Users lists every account for the admin users table.
func (s *AccountService) Users(ctx context.Context, a lifecycle.Actor) ([]view.UserRow, error) {
	if err := s.require(a, enum.ActionManageUsers); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return view.Users(users, a), nil
}

// SetRole makes the user a chef or admin. Admins cannot change their own role.
func (s *AccountService) SetRole(ctx context.Context, a lifecycle.Actor, userID, role string) error {
	if err := s.require(a, enum.ActionManageUsers); err != nil {
		return err
	}
	if role != enum.RoleChef && role != enum.RoleAdmin && role != enum.RoleUser {
		return apperr.Validation("role", "role must be user, chef or admin")
	}
	target, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.Email == a.Email {
		return fmt.Errorf("%w: you cannot change your own role", apperr.ErrForbidden)
	}
	if target.Role == role {
		return fmt.Errorf("%w: user is already %s", apperr.ErrConflict, role)
	}
	if err := s.store.SetUserRole(ctx, userID, role); err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *AccountService) DeleteUser(ctx context.Context, a lifecycle.Actor, userID string) error {
	if err := s.require(a, enum.ActionManageUsers); err != nil {
		return err
	}
	target, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.Email == a.Email {
		return fmt.Errorf("%w: you cannot delete your own account", apperr.ErrForbidden)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Requests lists role requests for the admin.
func (s *AccountService) Requests(ctx context.Context, a lifecycle.Actor) ([]view.RequestRow, error) {
	if err := s.require(a, enum.ActionManageRequests); err != nil {
		return nil, err
	}
	reqs, err := s.store.ListRoleRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("list role requests: %w", err)
	}
	return view.Requests(reqs), nil
}

// ResolveRequest approves or rejects a pending role request.
func (s *AccountService) ResolveRequest(ctx context.Context, a lifecycle.Actor, id, action string) error {
	if err := s.require(a, enum.ActionManageRequests); err != nil {
		return err
	}
	if action != enum.RequestActionApprove && action != enum.RequestActionReject {
		return apperr.Validation("action", "action must be approve or reject")
	}

	reqs, err := s.store.ListRoleRequests(ctx)
	if err != nil {
		return fmt.Errorf("list role requests: %w", err)
	}
	var found *order.RoleRequest
	for i := range reqs {
		if reqs[i].ID == id {
			found = &reqs[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("role request %s: %w", id, apperr.ErrNotFound)
	}
	if found.Status != enum.RequestStatusPending {
		return fmt.Errorf("%w: request is already %s", apperr.ErrInvalidTransition, found.Status)
	}

	if err := s.store.ResolveRoleRequest(ctx, id, action); err != nil {
		return fmt.Errorf("resolve role request: %w", err)
	}
	return nil
}

// Stats returns the platform statistics.
func (s *AccountService) Stats(ctx context.Context, a lifecycle.Actor) (*order.PlatformStats, error) {
	if err := s.require(a, enum.ActionViewStats); err != nil {
		return nil, err
	}
	st, err := s.store.PlatformStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	return &st, nil
}

func (s *AccountService) require(a lifecycle.Actor, action string) error {
	if !s.caps.Can(a.Role, action) {
		return fmt.Errorf("%w: %s cannot %s", apperr.ErrForbidden, a.Role, action)
	}
	return nil
}

func (s *AccountService) findUser(ctx context.Context, id string) (order.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return order.User{}, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return order.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
}
