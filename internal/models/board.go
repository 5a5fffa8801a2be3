package models

import "log"

// ColumnDefinition is static pipeline configuration. Columns are not stored
// per-user and are not reorderable at runtime.
type ColumnDefinition struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PipelineColumns is the fixed, ordered set of board columns. A deal's status
// must always be one of these ids.
var PipelineColumns = []ColumnDefinition{
	{ID: "lead", Title: "Lead"},
	{ID: "contacted", Title: "Contacted"},
	{ID: "proposal", Title: "Proposal Sent"},
	{ID: "won", Title: "Won"},
}

// ColumnTitle resolves a column id to its display title. Unknown ids fall back
// to the id itself so notifications never render empty.
func ColumnTitle(id string) string {
	for _, def := range PipelineColumns {
		if def.ID == id {
			return def.Title
		}
	}
	return id
}

// KnownColumn reports whether id names a configured pipeline column.
func KnownColumn(id string) bool {
	for _, def := range PipelineColumns {
		if def.ID == id {
			return true
		}
	}
	return false
}

// Column pairs a definition with the deals currently in that stage, ordered
// most-recent-first by creation.
type Column struct {
	ColumnDefinition
	Deals []Deal `json:"deals"`
}

// Board is the full ordered sequence of columns. There is exactly one Board per
// authenticated session, owned by the sync engine.
type Board struct {
	Columns []Column `json:"columns"`
}

// EmptyBoard returns a board with every configured column and no deals.
func EmptyBoard() Board {
	cols := make([]Column, len(PipelineColumns))
	for i, def := range PipelineColumns {
		cols[i] = Column{ColumnDefinition: def, Deals: []Deal{}}
	}
	return Board{Columns: cols}
}

// BucketDeals distributes deals (assumed ordered created_at descending) into
// columns by status. A deal with an unrecognized status is shown in the first
// column; the stored record is left untouched.
func BucketDeals(deals []Deal) Board {
	board := EmptyBoard()
	for _, deal := range deals {
		placed := false
		for i := range board.Columns {
			if board.Columns[i].ID == deal.Status {
				board.Columns[i].Deals = append(board.Columns[i].Deals, deal.Clone())
				placed = true
				break
			}
		}
		if !placed {
			log.Printf("deal %q has unknown status %q; showing in column %q", deal.Title, deal.Status, board.Columns[0].ID)
			display := deal.Clone()
			display.Status = board.Columns[0].ID
			board.Columns[0].Deals = append(board.Columns[0].Deals, display)
		}
	}
	return board
}

// Clone deep-copies the board so a snapshot survives later mutation.
func (b Board) Clone() Board {
	cols := make([]Column, len(b.Columns))
	for i, col := range b.Columns {
		deals := make([]Deal, len(col.Deals))
		for j, deal := range col.Deals {
			deals[j] = deal.Clone()
		}
		cols[i] = Column{ColumnDefinition: col.ColumnDefinition, Deals: deals}
	}
	return Board{Columns: cols}
}
