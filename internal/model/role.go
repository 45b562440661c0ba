package model

// Role is the closed set of account roles. Every route guard and every
// role-dependent view switches on this value.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether the role may create and manage quizzes.
func (r Role) CanAuthor() bool {
	return r == RoleStaff || r == RoleAdmin
}

// SeesAnswerKey reports whether quiz reads for this role include correct answers.
func (r Role) SeesAnswerKey() bool {
	return r.CanAuthor()
}
