package crm

import "context"

func (s *Service) ListCalls(ctx context.Context, tenantID, leadID string) ([]Call, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, lead_id, subject, called_at, duration_minutes, COALESCE(outcome, ''), COALESCE(notes, ''), created_by, created_at
    FROM lead_calls
    WHERE tenant_id = $1 AND lead_id = $2
    ORDER BY called_at DESC
  `, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.LeadID, &c.Subject, &c.CalledAt, &c.Duration, &c.Outcome, &c.Notes, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, nil
}

func (s *Service) CreateCall(ctx context.Context, tenantID, userID string, call Call) (string, error) {
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO lead_calls (tenant_id, lead_id, subject, called_at, duration_minutes, outcome, notes, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, tenantID, call.LeadID, call.Subject, call.CalledAt, call.Duration, call.Outcome, call.Notes, userID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) ListMeetings(ctx context.Context, tenantID, leadID string) ([]Meeting, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, lead_id, subject, scheduled_at, COALESCE(location, ''), COALESCE(notes, ''), created_by, created_at
    FROM lead_meetings
    WHERE tenant_id = $1 AND lead_id = $2
    ORDER BY scheduled_at DESC
  `, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Subject, &m.ScheduledAt, &m.Location, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func (s *Service) CreateMeeting(ctx context.Context, tenantID, userID string, meeting Meeting) (string, error) {
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO lead_meetings (tenant_id, lead_id, subject, scheduled_at, location, notes, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, meeting.LeadID, meeting.Subject, meeting.ScheduledAt, meeting.Location, meeting.Notes, userID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) ListNotes(ctx context.Context, tenantID, leadID string) ([]Note, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, lead_id, body, created_by, created_at
    FROM lead_notes
    WHERE tenant_id = $1 AND lead_id = $2
    ORDER BY created_at DESC
  `, tenantID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.Body, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (s *Service) CreateNote(ctx context.Context, tenantID, userID, leadID, body string) (string, error) {
	var id string
	err := s.Store.DB.QueryRow(ctx, `
    INSERT INTO lead_notes (tenant_id, lead_id, body, created_by)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, leadID, body, userID).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpcomingMeetings lists meetings scheduled within the next n days across all
// leads, for the dashboard.
func (s *Service) UpcomingMeetings(ctx context.Context, tenantID string, days int) ([]Meeting, error) {
	rows, err := s.Store.DB.Query(ctx, `
    SELECT id, lead_id, subject, scheduled_at, COALESCE(location, ''), COALESCE(notes, ''), created_by, created_at
    FROM lead_meetings
    WHERE tenant_id = $1 AND scheduled_at BETWEEN now() AND now() + ($2 || ' days')::interval
    ORDER BY scheduled_at
  `, tenantID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Subject, &m.ScheduledAt, &m.Location, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}
