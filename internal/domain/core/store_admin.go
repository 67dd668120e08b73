package core

import "context"

func (s *Store) ListPermissions(ctx context.Context) ([]map[string]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, key, description FROM permissions ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var id, key, description string
		if err := rows.Scan(&id, &key, &description); err != nil {
			return nil, err
		}
		out = append(out, map[string]string{"id": id, "key": key, "description": description})
	}
	return out, nil
}

func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]map[string]any, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.id, r.name, COALESCE(array_agg(p.key) FILTER (WHERE p.key IS NOT NULL), '{}')
    FROM roles r
    LEFT JOIN role_permissions rp ON rp.role_id = r.id
    LEFT JOIN permissions p ON p.id = rp.permission_id
    WHERE r.tenant_id = $1
    GROUP BY r.id, r.name
    ORDER BY r.name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var id, name string
		var permissions []string
		if err := rows.Scan(&id, &name, &permissions); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{"id": id, "name": name, "permissions": permissions})
	}
	return out, nil
}

func (s *Store) RoleTenant(ctx context.Context, roleID string) (string, error) {
	var tenantID string
	err := s.DB.QueryRow(ctx, "SELECT tenant_id FROM roles WHERE id = $1", roleID).Scan(&tenantID)
	return tenantID, err
}

func (s *Store) UpdateRolePermissions(ctx context.Context, roleID string, permissions []string) error {
	if _, err := s.DB.Exec(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID); err != nil {
		return err
	}
	for _, key := range permissions {
		if _, err := s.DB.Exec(ctx, `
      INSERT INTO role_permissions (role_id, permission_id)
      SELECT $1, id FROM permissions WHERE key = $2
      ON CONFLICT DO NOTHING
    `, roleID, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UserExists(ctx context.Context, tenantID, userID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM users WHERE tenant_id = $1 AND id = $2
  `, tenantID, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
