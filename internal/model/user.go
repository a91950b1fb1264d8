package model

type User struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// Department rows keep ParentID as a plain column rather than a
// self-referencing foreign key: departments arrive in arbitrary order and
// a parent may land after its children.
type Department struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	Deleted  bool    `json:"deleted"`
}
