package models

import "time"

// Role names available in the platform. Role comparisons are
// case-insensitive throughout.
const (
	RoleAdmin   = "Admin"
	RoleTeacher = "Teacher"
	RoleStudent = "Student"
)

// Account represents a platform account stored in the accounts table.
// OtpCode and OtpExpiresAt are either both set or both NULL; a successful
// password reset clears them together with the password change.
type Account struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	Phone        string     `db:"phone" json:"phone"`
	Address      string     `db:"address" json:"address"`
	Salary       *float64   `db:"salary" json:"salary,omitempty"`
	Balance      *float64   `db:"balance" json:"balance,omitempty"`
	PasswordHash string     `db:"password_hash" json:"-"`
	OtpCode      *string    `db:"otp_code" json:"-"`
	OtpExpiresAt *time.Time `db:"otp_expires_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// AccountFilter captures the configurable listing query: substring search on
// username, salary bounds, sort key and 1-based page number. The page size is
// fixed by configuration.
type AccountFilter struct {
	Search    string
	MinSalary *float64
	MaxSalary *float64
	SortBy    string
	Page      int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
