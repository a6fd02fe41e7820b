package globals

import (
	"context"
)

// JwtSecret is overwritten from config in main before any route is served.
var JwtSecret = []byte("dev-only-secret")

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

var Ctx = context.Background()
