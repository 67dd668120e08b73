package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Service struct {
	Store *Store
}

var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrInvalidStatus = errors.New("unknown lead status")
)

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

type LeadListResult struct {
	Leads []Lead
	Total int
}

func (s *Service) ListLeads(ctx context.Context, tenantID, status string, limit, offset int) (LeadListResult, error) {
	query := `
    SELECT id, name, COALESCE(company, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(source, ''),
           status, COALESCE(owner_id::text, ''), estimated_value, created_at, updated_at
    FROM leads
    WHERE tenant_id = $1
  `
	args := []any{tenantID}
	countQuery := "SELECT COUNT(1) FROM leads WHERE tenant_id = $1"
	countArgs := []any{tenantID}

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, status)
		countQuery += fmt.Sprintf(" AND status = $%d", len(countArgs)+1)
		countArgs = append(countArgs, status)
	}

	var total int
	if err := s.Store.DB.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		total = 0
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Store.DB.Query(ctx, query, args...)
	if err != nil {
		return LeadListResult{}, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		var lead Lead
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.Company, &lead.Email, &lead.Phone, &lead.Source,
			&lead.Status, &lead.OwnerID, &lead.EstValue, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
			return LeadListResult{}, err
		}
		leads = append(leads, lead)
	}
	return LeadListResult{Leads: leads, Total: total}, nil
}

func (s *Service) GetLead(ctx context.Context, tenantID, leadID string) (Lead, error) {
	var lead Lead
	err := s.Store.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(company, ''), COALESCE(email, ''), COALESCE(phone, ''), COALESCE(source, ''),
           status, COALESCE(owner_id::text, ''), estimated_value, created_at, updated_at
    FROM leads
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, leadID).Scan(&lead.ID, &lead.Name, &lead.Company, &lead.Email, &lead.Phone, &lead.Source,
		&lead.Status, &lead.OwnerID, &lead.EstValue, &lead.CreatedAt, &lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrLeadNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func (s *Service) CreateLead(ctx context.Context, tenantID string, lead Lead) (string, error) {
	if lead.Status == "" {
		lead.Status = LeadStatusNew
	}
	if !ValidLeadStatus(lead.Status) {
		return "", ErrInvalidStatus
	}
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO leads (tenant_id, name, company, email, phone, source, status, owner_id, estimated_value)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, tenantID, lead.Name, lead.Company, lead.Email, lead.Phone, lead.Source, lead.Status, nullIfEmpty(lead.OwnerID), lead.EstValue).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) UpdateLead(ctx context.Context, tenantID, leadID string, lead Lead) error {
	if !ValidLeadStatus(lead.Status) {
		return ErrInvalidStatus
	}
	cmd, err := s.Store.DB.Exec(ctx, `
    UPDATE leads
    SET name = $1, company = $2, email = $3, phone = $4, source = $5, status = $6,
        owner_id = $7, estimated_value = $8, updated_at = now()
    WHERE tenant_id = $9 AND id = $10
  `, lead.Name, lead.Company, lead.Email, lead.Phone, lead.Source, lead.Status,
		nullIfEmpty(lead.OwnerID), lead.EstValue, tenantID, leadID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *Service) UpdateLeadStatus(ctx context.Context, tenantID, leadID, status string) error {
	if !ValidLeadStatus(status) {
		return ErrInvalidStatus
	}
	cmd, err := s.Store.DB.Exec(ctx, `
    UPDATE leads SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3
  `, status, tenantID, leadID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (s *Service) DeleteLead(ctx context.Context, tenantID, leadID string) error {
	_, err := s.Store.DB.Exec(ctx, "DELETE FROM leads WHERE tenant_id = $1 AND id = $2", tenantID, leadID)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
