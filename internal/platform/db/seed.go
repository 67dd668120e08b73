package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"agencyerp/internal/domain/auth"
	"agencyerp/internal/platform/config"
)

// Seed makes sure a fresh database can serve logins right away: the default
// tenant with its settings row, the permission catalog, the default roles
// with their grants, and the bootstrap admin account. Every step is
// idempotent, so it runs on each startup.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	s := seeder{pool: pool}

	tenantID, err := s.tenant(ctx, cfg.SeedTenantName)
	if err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}
	if err := s.tenantSettings(ctx, tenantID, cfg.EmailFrom); err != nil {
		return fmt.Errorf("seed tenant settings: %w", err)
	}
	permIDs, err := s.permissions(ctx)
	if err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	adminRoleID, err := s.roles(ctx, tenantID, permIDs)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := s.adminUser(ctx, tenantID, adminRoleID, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	return nil
}

type seeder struct {
	pool *pgxpool.Pool
}

func (s seeder) tenant(ctx context.Context, name string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id); err == nil {
		return id, nil
	}
	err := s.pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	return id, err
}

// tenantSettings gives the tenant a settings row so notification preferences
// have somewhere to live. Email stays off until an admin enables it.
func (s seeder) tenantSettings(ctx context.Context, tenantID, emailFrom string) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO tenant_settings (tenant_id, email_enabled, email_from)
    VALUES ($1, false, $2)
    ON CONFLICT (tenant_id) DO NOTHING
  `, tenantID, emailFrom)
	return err
}

// permissions inserts any missing catalog entries and returns key to ID for
// the whole catalog.
func (s seeder) permissions(ctx context.Context) (map[string]string, error) {
	for _, key := range auth.DefaultPermissions {
		if _, err := s.pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", key); err != nil {
			return nil, err
		}
	}

	rows, err := s.pool.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	permIDs := make(map[string]string, len(auth.DefaultPermissions))
	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, err
		}
		permIDs[key] = id
	}
	return permIDs, nil
}

// roles ensures each default role and its grants exist, returning the admin
// role ID for the bootstrap user.
func (s seeder) roles(ctx context.Context, tenantID string, permIDs map[string]string) (string, error) {
	var adminRoleID string
	for roleName, permKeys := range auth.RolePermissions {
		var roleID string
		err := s.pool.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName).Scan(&roleID)
		if err != nil {
			if err = s.pool.QueryRow(ctx, "INSERT INTO roles (tenant_id, name) VALUES ($1, $2) RETURNING id", tenantID, roleName).Scan(&roleID); err != nil {
				return "", err
			}
		}
		if roleName == auth.RoleAdmin {
			adminRoleID = roleID
		}

		for _, key := range permKeys {
			permID, ok := permIDs[key]
			if !ok {
				return "", fmt.Errorf("unknown permission %q granted to role %q", key, roleName)
			}
			if _, err := s.pool.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID); err != nil {
				return "", err
			}
		}
	}
	return adminRoleID, nil
}

func (s seeder) adminUser(ctx context.Context, tenantID, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var existing string
	if err := s.pool.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&existing); err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id, status)
    VALUES ($1, $2, $3, $4, $5)
  `, tenantID, email, hash, roleID, auth.UserStatusActive)
	return err
}
