package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User represents an authenticated app user.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username,unique,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	Role         string    `bun:"role,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Roles. Admins manage users and projects, editors modify diagrams, viewers
// only read.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// CanEditDiagrams reports whether the role is allowed to mutate diagram content.
func (u User) CanEditDiagrams() bool {
	return u.Role == RoleAdmin || u.Role == RoleEditor
}

// Session is used by middleware and auth handlers.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID                string         `bun:"id,pk"`
	UserID            int64          `bun:"user_id,notnull"`
	User              User           `bun:"rel:belongs-to,join:user_id=id"`
	UserRoles         []string       `bun:"-"`
	ScreenPermissions map[string]int `bun:"-"`
	ExpiresAt         time.Time      `bun:"expires_at,notnull"`
	CreatedAt         time.Time      `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt         time.Time      `bun:"updated_at,notnull,default:current_timestamp"`
}

// Expired returns true when the session expiry time has passed.
func (s Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Project groups diagrams under one construction site or contract.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	Status      string    `bun:"status,notnull,default:'active'"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Diagram is one saved canvas: the object list and the BOQ master table, both
// stored as JSON text exactly as the editor serialized them.
type Diagram struct {
	bun.BaseModel `bun:"table:diagrams,alias:d"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	Objects     string    `bun:"objects,notnull,default:'[]'"`
	BOQData     string    `bun:"boq_data,notnull,default:'[]'"`
	ProjectID   int64     `bun:"project_id,notnull"`
	Project     *Project  `bun:"rel:belongs-to,join:project_id=id"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	UserID     int64     `bun:"user_id,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
