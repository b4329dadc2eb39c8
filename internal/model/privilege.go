package model

// Privilege codes checked by the HTTP layer.
const (
	PrivUserView   = "user:view"
	PrivUserCreate = "user:create"
	PrivUserUpdate = "user:update"
	PrivUserDelete = "user:delete"

	PrivProductView   = "product:view"
	PrivProductCreate = "product:create"
	PrivProductUpdate = "product:update"
	PrivProductDelete = "product:delete"

	PrivOrderView         = "order:view"
	PrivOrderCreate       = "order:create"
	PrivOrderUpdate       = "order:update"
	PrivOrderUpdateStatus = "order:update_status"
	PrivOrderCancel       = "order:cancel"
	PrivOrderDelete       = "order:delete"

	PrivDashboardView = "dashboard:view"
)

// Privilege is a permission code with a display name.
type Privilege struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultPrivileges is the full privilege catalogue
var DefaultPrivileges = []Privilege{
	// User management
	{Code: PrivUserView, Name: "View User"},
	{Code: PrivUserCreate, Name: "Create User"},
	{Code: PrivUserUpdate, Name: "Update User"},
	{Code: PrivUserDelete, Name: "Delete User"},
	// Catalog
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	{Code: PrivProductDelete, Name: "Delete Product"},
	// Orders
	{Code: PrivOrderView, Name: "View Order"},
	{Code: PrivOrderCreate, Name: "Create Order"},
	{Code: PrivOrderUpdate, Name: "Update Order"},
	{Code: PrivOrderUpdateStatus, Name: "Move Order Status"},
	{Code: PrivOrderCancel, Name: "Cancel Order"},
	{Code: PrivOrderDelete, Name: "Delete Order"},
	// Dashboard
	{Code: PrivDashboardView, Name: "View Dashboard"},
}

var rolePrivileges = map[Role][]string{
	RoleSales: {
		PrivProductView,
		PrivOrderView,
		PrivOrderCreate,
		PrivOrderCancel,
	},
	RoleWarehouse: {
		PrivProductView,
		PrivOrderView,
		PrivOrderUpdate,
		PrivOrderUpdateStatus,
		PrivOrderCancel,
	},
	RoleAdmin: allPrivilegeCodes(),
}

func allPrivilegeCodes() []string {
	codes := make([]string, len(DefaultPrivileges))
	for i, p := range DefaultPrivileges {
		codes[i] = p.Code
	}
	return codes
}
