package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole distinguishes shoppers from back-office admins
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

// User is either a passwordless shopper or an admin with a bcrypt password hash
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex"`
	Role         UserRole  `json:"role" gorm:"not null;default:'USER'"`
	PasswordHash *string   `json:"-" gorm:"column:password_hash"`
	Country      *string   `json:"country,omitempty" gorm:"type:varchar(3)"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Country is a storefront shipping destination
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

const WorldwideCountryCode = "ALL"

var SupportedCountries = []Country{
	{Code: "ALL", Name: "Worldwide", Flag: "🌍"},
	{Code: "US", Name: "United States", Flag: "🇺🇸"},
	{Code: "GB", Name: "United Kingdom", Flag: "🇬🇧"},
	{Code: "CA", Name: "Canada", Flag: "🇨🇦"},
	{Code: "AU", Name: "Australia", Flag: "🇦🇺"},
	{Code: "DE", Name: "Germany", Flag: "🇩🇪"},
	{Code: "FR", Name: "France", Flag: "🇫🇷"},
	{Code: "JP", Name: "Japan", Flag: "🇯🇵"},
	{Code: "KR", Name: "South Korea", Flag: "🇰🇷"},
	{Code: "BR", Name: "Brazil", Flag: "🇧🇷"},
	{Code: "IN", Name: "India", Flag: "🇮🇳"},
	{Code: "MX", Name: "Mexico", Flag: "🇲🇽"},
	{Code: "ES", Name: "Spain", Flag: "🇪🇸"},
	{Code: "IT", Name: "Italy", Flag: "🇮🇹"},
	{Code: "NL", Name: "Netherlands", Flag: "🇳🇱"},
	{Code: "PL", Name: "Poland", Flag: "🇵🇱"},
	{Code: "SE", Name: "Sweden", Flag: "🇸🇪"},
	{Code: "CH", Name: "Switzerland", Flag: "🇨🇭"},
	{Code: "SG", Name: "Singapore", Flag: "🇸🇬"},
	{Code: "AE", Name: "UAE", Flag: "🇦🇪"},
	{Code: "BD", Name: "Bangladesh", Flag: "🇧🇩"},
}

// CountryByCode looks a code up in SupportedCountries
func CountryByCode(code string) (Country, bool) {
	for _, c := range SupportedCountries {
		if c.Code == code {
			return c, true
		}
	}
	return Country{}, false
}
