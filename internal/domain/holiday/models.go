package holiday

import "time"

type Holiday struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Recurring bool      `json:"recurring"`
	CreatedAt time.Time `json:"createdAt"`
}
