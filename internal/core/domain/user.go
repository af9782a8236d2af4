package domain

import (
	"errors"
	"time"
)

// User models an account on the platform. PasswordHash and RefreshToken are
// never serialized; responses only ever carry the sanitized fields.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"cover_image,omitempty"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	WatchHistory []string  `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subscription is a directed edge: Subscriber follows Channel. Both sides
// reference a User by id.
type Subscription struct {
	ID         string    `json:"id"`
	Subscriber string    `json:"subscriber"`
	Channel    string    `json:"channel"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChannelProfile is the public view of a user's channel, including the
// derived subscription counts for the requesting viewer.
type ChannelProfile struct {
	Username                 string `json:"username"`
	Email                    string `json:"email"`
	FullName                 string `json:"full_name"`
	Avatar                   string `json:"avatar"`
	CoverImage               string `json:"cover_image,omitempty"`
	SubscriberCount          int64  `json:"subscriber_count"`
	ChannelSubscribedToCount int64  `json:"channels_subscribed_to_count"`
	IsSubscribed             bool   `json:"is_subscribed"`
}

// VideoOwner is the flattened public view of a video's owning user.
type VideoOwner struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// VideoView is a single watch-history entry joined with its owner.
type VideoView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Thumbnail string     `json:"thumbnail"`
	VideoFile string     `json:"video_file"`
	Duration  float64    `json:"duration"`
	Views     int64      `json:"views"`
	Owner     VideoOwner `json:"owner"`
	CreatedAt time.Time  `json:"created_at"`
}

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrMissingField = errors.New("required field missing")
var ErrInvalidToken = errors.New("invalid or expired token")
var ErrUploadFailed = errors.New("media upload failed")
var ErrSelfSubscription = errors.New("cannot subscribe to own channel")

// Sanitized returns a copy with the secret fields cleared. Read paths project
// them away at the repository; write paths that hand back the record they
// just created or patched go through here.
func (u User) Sanitized() *User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return &u
}
