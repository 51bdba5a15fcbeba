package todo

// Todo is the client-side projection of a server-owned todo item.
type Todo struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
	CreatedAt   Time    `json:"created_at"`
	UpdatedAt   *Time   `json:"updated_at,omitempty"`
	UserID      int     `json:"user_id"`
}

// DescriptionText returns the description or an empty string.
func (t Todo) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// CreateRequest is the POST /todos/ body.
type CreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// UpdateRequest is the PUT /todos/{id} body. Nil fields are left untouched by the server.
type UpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Empty reports whether the update carries no field at all.
func (r UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil
}

// ListResult is one page of a filtered, sorted list.
type ListResult struct {
	Items []Todo `json:"todos"`
	Total int    `json:"total"`
	Skip  int    `json:"skip"`
	Limit int    `json:"limit"`
}

// HasNext reports whether another page follows this one.
func (r *ListResult) HasNext() bool {
	return r.Skip+r.Limit < r.Total
}

// HasPrev reports whether a page precedes this one.
func (r *ListResult) HasPrev() bool {
	return r.Skip > 0
}

// Page returns the 1-based page number and the page count.
func (r *ListResult) Page() (current, pages int) {
	if r.Limit <= 0 {
		return 1, 1
	}
	current = r.Skip/r.Limit + 1
	pages = (r.Total + r.Limit - 1) / r.Limit
	return current, pages
}

// Analytics is computed by the server over every todo of the user.
type Analytics struct {
	Total          int     `json:"total_todos"`
	Completed      int     `json:"completed_todos"`
	Pending        int     `json:"pending_todos"`
	CompletionRate float64 `json:"completion_rate"`
}

// Bool and String return pointers for optional request fields.
func Bool(v bool) *bool { return &v }

func String(v string) *string { return &v }
