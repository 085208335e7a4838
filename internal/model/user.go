package model

import "time"

// Role names stored in users.role and embedded in JWT claims.  CASHIER
// accounts emit and cancel tickets against their own allocations; MANAGER
// accounts administer events, sectors and allocations and may cancel any
// ticket; ADMIN accounts additionally provision user accounts.  There is
// no self-service registration: box-office staff are created by an admin.
const (
    RoleCashier = "CASHIER"
    RoleManager = "MANAGER"
    RoleAdmin   = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  The json
// tags are omitted here because these structs are used internally by the
// repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (CASHIER, MANAGER or ADMIN).
//  IsActive     – whether the account is active; inactive accounts cannot log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// ValidRole reports whether r is one of the recognized role names.
func ValidRole(r string) bool {
    switch r {
    case RoleCashier, RoleManager, RoleAdmin:
        return true
    }
    return false
}

// ManagerTier reports whether the role may act on resources it does not
// own, e.g. cancelling a ticket issued by another cashier.
func ManagerTier(role string) bool {
    return role == RoleManager || role == RoleAdmin
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and carries expiry and revocation
// metadata.  The plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
