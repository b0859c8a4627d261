package enum

// ── Group A: State machines (re-validated by the backend) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusCancelled = "cancelled"
	OrderStatusDelivered = "delivered"
)

const (
	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"
)

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// ── Group B: Roles and the actions they may be granted ──

const (
	RoleUser  = "user"
	RoleChef  = "chef"
	RoleAdmin = "admin"
)

// Order actions. Everything except pay changes orderStatus.
const (
	ActionAccept  = "accept"
	ActionCancel  = "cancel"
	ActionDeliver = "deliver"
	ActionPay     = "pay"
)

const (
	ActionPlaceOrder     = "place_order"
	ActionFavorite       = "favorite"
	ActionReview         = "review"
	ActionCreateMeal     = "create_meal"
	ActionUpdateMeal     = "update_meal"
	ActionDeleteMeal     = "delete_meal"
	ActionRequestRole    = "request_role"
	ActionManageUsers    = "manage_users"
	ActionManageRequests = "manage_requests"
	ActionViewStats      = "view_stats"
)

// ── Group C: Configurable labels ──

const (
	RequestTypeChef  = "chef"
	RequestTypeAdmin = "admin"
)

const (
	RequestActionApprove = "approve"
	RequestActionReject  = "reject"
)

const (
	MealSortAsc  = "asc"
	MealSortDesc = "desc"
)
