package holiday

import (
	"context"
	"time"

	"agencyerp/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context, tenantID string) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, date, name, recurring, created_at
    FROM holidays
    WHERE tenant_id = $1
    ORDER BY date
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Recurring, &h.CreatedAt); err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, nil
}

func (s *Store) Create(ctx context.Context, tenantID string, date time.Time, name string, recurring bool) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (tenant_id, date, name, recurring)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, date, name, recurring).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, tenantID, holidayID string) error {
	_, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE tenant_id = $1 AND id = $2", tenantID, holidayID)
	return err
}

// DateSetForRange loads every holiday date inside [start, end] into an
// in-memory Calendar so day-by-day iteration never queries the store. The
// query only pulls rows that can contribute: dated rows inside the interval
// plus every recurring row, which matches on month and day for each year in
// the range.
func (s *Store) DateSetForRange(ctx context.Context, tenantID string, start, end time.Time) (DateSet, error) {
	set := DateSet{}

	rows, err := s.DB.Query(ctx, `
    SELECT date, recurring
    FROM holidays
    WHERE tenant_id = $1 AND (recurring OR date BETWEEN $2 AND $3)
  `, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var date time.Time
		var recurring bool
		if err := rows.Scan(&date, &recurring); err != nil {
			return nil, err
		}
		if !recurring {
			set[date.Format("2006-01-02")] = true
			continue
		}
		for year := start.Year(); year <= end.Year(); year++ {
			occurrence := time.Date(year, date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
			if !occurrence.Before(start) && !occurrence.After(end) {
				set[occurrence.Format("2006-01-02")] = true
			}
		}
	}
	return set, nil
}
