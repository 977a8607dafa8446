package models

import (
	"strings"
	"time"
)

type User struct {
	ID              string     `json:"id"`
	Email           *string    `json:"email"`
	FirstName       *string    `json:"firstName"`
	LastName        *string    `json:"lastName"`
	ProfileImageURL *string    `json:"profileImageUrl"`
	XP              int        `json:"xp"`
	Level           int        `json:"level"`
	Streak          int        `json:"streak"`
	LastLogin       *time.Time `json:"lastLogin"`
	ReferralCode    *string    `json:"referralCode"`
	ReferredBy      *string    `json:"referredBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Public strips everything a leaderboard or referral list must not expose.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		XP:              u.XP,
		Level:           u.Level,
		ProfileImageURL: u.ProfileImageURL,
	}
}

// PublicUser is the projection of a user safe to show to other users.
type PublicUser struct {
	ID              string  `json:"id"`
	FirstName       *string `json:"firstName"`
	LastName        *string `json:"lastName"`
	XP              int     `json:"xp"`
	Level           int     `json:"level"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

// UpsertUser carries the identity claims a user row is created or refreshed from.
type UpsertUser struct {
	ID              string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// Normalize trims the claims and lowercases the email.
func (u UpsertUser) Normalize() UpsertUser {
	u.ID = strings.TrimSpace(u.ID)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.ProfileImageURL = strings.TrimSpace(u.ProfileImageURL)
	return u
}

type ErrorResponse struct {
	Message string `json:"message"`
}
