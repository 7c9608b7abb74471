package models

import "time"

// UserRole represents the available roles for access control.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleFaculty UserRole = "faculty"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         UserRole   `db:"role" json:"role"`
	Department   string     `db:"department" json:"department"`
	Phone        string     `db:"phone" json:"phone,omitempty"`
	Active       bool       `db:"is_active" json:"isActive"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// StudentProfile holds the student-only attributes for a user.
type StudentProfile struct {
	UserID        string  `db:"user_id" json:"-"`
	StudentNumber string  `db:"student_number" json:"studentId"`
	RollNumber    string  `db:"roll_number" json:"rollNumber,omitempty"`
	Year          int     `db:"year" json:"year"`
	Semester      int     `db:"semester" json:"semester"`
	CGPA          float64 `db:"cgpa" json:"cgpa"`
	TotalCredits  float64 `db:"total_credits" json:"totalCredits"`
}

// FacultyProfile holds the faculty-only attributes for a user.
type FacultyProfile struct {
	UserID      string `db:"user_id" json:"-"`
	EmployeeID  string `db:"employee_id" json:"employeeId"`
	Designation string `db:"designation" json:"designation"`
}

// UserDetail is a user joined with its role-specific profile, when one exists.
type UserDetail struct {
	User
	Student *StudentProfile `json:"studentProfile,omitempty"`
	Faculty *FacultyProfile `json:"facultyProfile,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role       *UserRole
	Department string
	Active     *bool
	Search     string
	Page       int
	Limit      int
}
