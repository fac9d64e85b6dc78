package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "blog-cms context key " + string(c)
}

const (
	// UserIDKey is the key for the authenticated admin user ID
	UserIDKey = contextKey("userID")
	// UserEmailKey is the key for the authenticated admin user email
	UserEmailKey = contextKey("userEmail")
	// UserRolesKey is the key for the authenticated admin user roles ([]string)
	UserRolesKey = contextKey("userRoles")
	// RequestIDKey is the key for the request ID set by the requestid middleware
	RequestIDKey = contextKey("requestID")
	// ComponentKey names the component handling the request
	ComponentKey = contextKey("component")
	// OperationKey names the operation (callable name, job name)
	OperationKey = contextKey("operation")
)
