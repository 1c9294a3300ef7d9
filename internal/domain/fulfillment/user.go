package fulfillment

import (
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// User is a customer known to the bot
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Language     Locale
	Phone        string
	City         string
	FullName     string
	Latitude     *float64
	Longitude    *float64
	CreatedAt    time.Time
	LastActivity time.Time
}

// NewUser registers a first-seen chat user
func NewUser(id int64, username, firstName, lastName string, now time.Time) *User {
	return &User{
		ID:           id,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Language:     DefaultLocale,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch records activity
func (u *User) Touch(now time.Time) {
	u.LastActivity = now
}

// SetLanguage switches the customer-facing locale
func (u *User) SetLanguage(l Locale) {
	u.Language = ParseLocale(string(l))
}

// HasProfile reports whether registration was completed
func (u *User) HasProfile() bool {
	return u.Phone != "" && u.FullName != ""
}

// CompleteProfile stores registration data
func (u *User) CompleteProfile(phone, city, fullName string, lat, lon *float64) error {
	phone = strings.TrimSpace(phone)
	fullName = strings.Join(strings.Fields(fullName), " ")
	if phone == "" {
		return shared.NewValidationError("Phone number is required")
	}
	if fullName == "" {
		return shared.NewValidationError("Full name is required")
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return shared.NewValidationError("Latitude out of range")
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return shared.NewValidationError("Longitude out of range")
	}
	u.Phone = phone
	u.City = strings.TrimSpace(city)
	u.FullName = fullName
	u.Latitude = lat
	u.Longitude = lon
	return nil
}

// PhoneDigits returns the phone number with everything but digits removed
func (u *User) PhoneDigits() string {
	return DigitsOnly(u.Phone)
}

// DigitsOnly strips every non-digit rune
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UserStats summarizes the user base for the super-admin
type UserStats struct {
	Total     int64
	Active30d int64
	New7d     int64
}
