package adminusers

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"sitecanvas/frontend/login"
	"sitecanvas/infrastructure/argon"
	"sitecanvas/infrastructure/audit"
	"sitecanvas/infrastructure/rbac"
	"sitecanvas/infrastructure/sqlite"
	"sitecanvas/models"
)

// ListUsers returns every user ordered by id.
func ListUsers(ctx context.Context, db *sqlite.DB) ([]UserView, error) {
	users := make([]UserView, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw("SELECT id, username, role FROM users ORDER BY id ASC").Scan(ctx, &users)
	})
	return users, err
}

func validRole(role string) bool {
	switch role {
	case rbac.RoleAdmin, rbac.RoleEditor, rbac.RoleViewer:
		return true
	}
	return false
}

// CreateUser validates and inserts a new user, with an audit record in the
// same transaction.
func CreateUser(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID int64, username, password, role string) (models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if password == "" {
		return models.User{}, ErrPasswordRequired
	}
	if !validRole(role) {
		return models.User{}, ErrInvalidRole
	}
	if err := login.ValidatePasswordPolicy(password); err != nil {
		return models.User{}, err
	}

	hash, err := argon.CreateHash(password, argon.DefaultParams)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: hash, Role: role}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var count int
		if err := tx.NewRaw(
			"SELECT COUNT(*) FROM users WHERE LOWER(username) = ?", strings.ToLower(username),
		).Scan(ctx, &count); err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameExists
		}
		if _, err := tx.NewInsert().Model(&user).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "user.create", "user",
			fmt.Sprintf("%d", user.ID), nil,
			UserView{ID: user.ID, Username: user.Username, Role: user.Role})
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// UpdateUserRole changes a user's role, audited.
func UpdateUserRole(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, userID int64, role string) error {
	if !validRole(role) {
		return ErrInvalidRole
	}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.User
		if err := tx.NewSelect().Model(&before).Where("id = ?", userID).Limit(1).Scan(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model((*models.User)(nil)).
			Set("role = ?", role).
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("id = ?", userID).
			Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, "user.role_change", "user",
			fmt.Sprintf("%d", userID),
			UserView{ID: before.ID, Username: before.Username, Role: before.Role},
			UserView{ID: before.ID, Username: before.Username, Role: role})
	})
}
