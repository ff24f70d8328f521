package models

// User roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents an authenticated customer or back-office admin.
type User struct {
	BaseModel
	Email        string  `gorm:"uniqueIndex" json:"email"`
	FullName     string  `json:"full_name"`
	Phone        string  `json:"phone"`
	Address      string  `json:"address"`
	PasswordHash string  `json:"-"`
	Role         string  `json:"role"`
	Orders       []Order `json:"orders,omitempty"`
}

// IsAdmin reports whether the user may access back-office routes.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
