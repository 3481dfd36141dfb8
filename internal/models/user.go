package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the root account document stored in MongoDB. The followers and
// following arrays are maintained with set semantics ($addToSet/$pull)
// and never contain the owner's own id.
type User struct {
	ID                  primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Username            string               `json:"username" bson:"username"`
	Email               string               `json:"email" bson:"email"`
	Password            string               `json:"-" bson:"password"`
	Bio                 string               `json:"bio,omitempty" bson:"bio,omitempty"`
	ProfilePicture      string               `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
	SocialLinks         map[string]string    `json:"social_links,omitempty" bson:"social_links,omitempty"`
	Followers           []primitive.ObjectID `json:"followers" bson:"followers"`
	Following           []primitive.ObjectID `json:"following" bson:"following"`
	IsActive            bool                 `json:"is_active" bson:"is_active"`
	PostsCount          int                  `json:"posts_count" bson:"posts_count"`
	ResetPasswordToken  string               `json:"-" bson:"reset_password_token,omitempty"`
	ResetPasswordExpire time.Time            `json:"-" bson:"reset_password_expire,omitempty"`
	CreatedAt           time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at" bson:"updated_at"`
}

// UserCompact is the projection used wherever another entity resolves a
// user reference (followers lists, message senders, notification senders).
type UserCompact struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Username       string             `json:"username" bson:"username"`
	ProfilePicture string             `json:"profile_picture,omitempty" bson:"profile_picture,omitempty"`
}

// ToCompact projects the user for embedding in other payloads.
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Username       string            `json:"username,omitempty" validate:"omitempty,min=2,max=50"`
	Email          string            `json:"email,omitempty" validate:"omitempty,email"`
	Bio            string            `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePicture string            `json:"profile_picture,omitempty"`
	SocialLinks    map[string]string `json:"social_links,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
