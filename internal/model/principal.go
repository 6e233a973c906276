package model

// Principal is the authenticated user context of a request. It is
// threaded explicitly into every operation that makes an authorization
// decision instead of being read from ambient request state.
type Principal struct {
	UserID int
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanViewTask reports whether the principal may view or edit the task:
// its assignee, its creator, or any admin.
func (p Principal) CanViewTask(t *Task) bool {
	return p.IsAdmin() || t.AssignedTo == p.UserID || t.CreatedBy == p.UserID
}

// CanDeleteTask reports whether the principal may delete the task: its
// creator or any admin.
func (p Principal) CanDeleteTask(t *Task) bool {
	return p.IsAdmin() || t.CreatedBy == p.UserID
}
