package models

import "time"

// Deal is a sales opportunity tracked on the Kanban board. Status always
// references one of the configured pipeline columns.
type Deal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	ContactName string    `json:"contact_name"`
	Value       float64   `json:"value"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy, including the tag slice.
func (d Deal) Clone() Deal {
	out := d
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	return out
}
