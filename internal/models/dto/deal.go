package dto

// DealPayload carries the user-editable fields of a deal for insert and update.
type DealPayload struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	ContactName string   `json:"contact_name"`
	Value       float64  `json:"value"`
	Status      string   `json:"status"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// MoveRequest identifies an optimistic card move between two columns.
type MoveRequest struct {
	DealID     string `json:"deal_id"`
	FromColumn string `json:"from_column"`
	ToColumn   string `json:"to_column"`
}
