package model

// Project, Board and Column form the board hierarchy of the mirror. Keys
// are the source system's opaque string ids; rows cascade on parent delete.

type Project struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

type Board struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ProjectID string `json:"project_id"`
}

type Column struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Color   *int32 `json:"color,omitempty"`
	BoardID string `json:"board_id"`
}
