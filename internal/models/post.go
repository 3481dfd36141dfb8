package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a social media post stored in MongoDB. Hashtags are
// derived from the content at write time; Views is monotonic and Likes
// is kept duplicate-free via $addToSet.
type Post struct {
	ID        primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	AuthorID  primitive.ObjectID   `json:"author_id" bson:"author_id"`
	Title     string               `json:"title" bson:"title"`
	Content   string               `json:"content" bson:"content"`
	Tags      []string             `json:"tags" bson:"tags"`
	Hashtags  []string             `json:"hashtags" bson:"hashtags"`
	Image     string               `json:"image,omitempty" bson:"image,omitempty"`
	Views     int                  `json:"views" bson:"views"`
	Likes     []primitive.ObjectID `json:"likes" bson:"likes"`
	CreatedAt time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time            `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200"`
	Content string   `json:"content" validate:"required,min=1"`
	Tags    []string `json:"tags,omitempty"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Title   string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}
