package domain

import "time"

const UserTypeDriver = "driver"

// User is the canonical account record. It is reachable by any of its
// identity keys (phone, license plate, LINE user id, Apple subject); at most
// one of those is set at creation, the rest may be attached later.
type User struct {
	UserID              string     `json:"id" dynamodbav:"user_id"`
	UserType            string     `json:"user_type" dynamodbav:"user_type"`
	Phone               *string    `json:"phone,omitempty" dynamodbav:"phone"`
	LicensePlate        *string    `json:"license_plate,omitempty" dynamodbav:"license_plate"`
	LineUserID          *string    `json:"-" dynamodbav:"line_user_id"`
	AppleUserID         *string    `json:"-" dynamodbav:"apple_user_id"`
	PasswordHash        string     `json:"-" dynamodbav:"password_hash"`
	Nickname            string     `json:"nickname,omitempty" dynamodbav:"nickname"`
	Email               string     `json:"email,omitempty" dynamodbav:"email"`
	LineDisplayName     string     `json:"line_display_name,omitempty" dynamodbav:"line_display_name"`
	LinePictureURL      string     `json:"line_picture_url,omitempty" dynamodbav:"line_picture_url"`
	IsLineFriend        bool       `json:"is_line_friend" dynamodbav:"is_line_friend"`
	AppleEmail          string     `json:"apple_email,omitempty" dynamodbav:"apple_email"`
	AppleFullName       string     `json:"apple_full_name,omitempty" dynamodbav:"apple_full_name"`
	IsBlockedByAdmin    bool       `json:"-" dynamodbav:"is_blocked_by_admin"`
	LastFreePointsReset time.Time  `json:"last_free_points_reset" dynamodbav:"last_free_points_reset"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt           time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt           time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// HasPassword reports whether password login is available for this user.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
