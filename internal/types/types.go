// Package types provides the shared data model used across critiqal packages.
// This package exists to break import cycles between api, service and state.
// Types in this package should be plain value structs with no behavior beyond
// small accessors.
package types

import "strings"

// =============================================================================
// USERS
// =============================================================================

// User is an immutable profile snapshot returned by the API.
// A profile update replaces the whole value; fields are never patched in place.
type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Picture returns the avatar URL, falling back to the uploaded photo.
func (u User) Picture() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return u.PhotoURL
}

// PublicUser is the reduced user shape returned by search endpoints.
type PublicUser struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// Public reduces a full user to its public shape.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		PhotoURL:  u.Picture(),
	}
}

// ProfileUpdate carries the editable profile fields. Nil fields are omitted.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the body of POST /auth/sign-in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/sign-up.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// AuthResponse is returned by sign-in and sign-up. Token fields are only
// populated by deployments using bearer credentials.
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshResponse is returned by POST /auth/refresh.
type RefreshResponse struct {
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// =============================================================================
// POSTS
// =============================================================================

// MediaType tags a media attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// PostMedia is a media item owned by its post. Order within Post.Media is significant.
type PostMedia struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// Post is a feed entry. The author is referenced, not owned. Older API
// versions send the author as "owner" and the text as "content".
type Post struct {
	ID            string      `json:"id"`
	AuthorID      string      `json:"author_id,omitempty"`
	Author        *User       `json:"author,omitempty"`
	Owner         *User       `json:"owner,omitempty"`
	Title         string      `json:"title,omitempty"`
	Description   string      `json:"description,omitempty"`
	Content       string      `json:"content,omitempty"`
	PhotoURL      string      `json:"photo_url,omitempty"`
	LikesCount    int         `json:"likes_count"`
	CommentsCount int         `json:"comments_count"`
	IsLiked       bool        `json:"is_liked,omitempty"`
	Media         []PostMedia `json:"media,omitempty"`
	CreatedAt     string      `json:"created_at,omitempty"`
	UpdatedAt     string      `json:"updated_at,omitempty"`
}

// FeedPost is the name the feed uses for a Post.
type FeedPost = Post

// Body returns the post text, preferring description over the legacy content field.
func (p Post) Body() string {
	if p.Description != "" {
		return p.Description
	}
	return p.Content
}

// AuthorRef returns whichever author reference the server populated.
func (p Post) AuthorRef() *User {
	if p.Author != nil {
		return p.Author
	}
	return p.Owner
}

// CreatePostRequest is the body of POST /posts.
type CreatePostRequest struct {
	Description string `json:"description"`
	Title       string `json:"title,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// UpdatePostRequest is the body of PUT /posts/{id}.
type UpdatePostRequest struct {
	Description string `json:"description"`
	Title       string `json:"title,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// PaginatedResponse wraps list endpoints that page their results.
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// PhotoUploadResponse is returned by POST /users/{id}/photo.
type PhotoUploadResponse struct {
	URL string `json:"url"`
}
