// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a LingoHub account. Accounts are created by the auth layer; this
// module only reads profiles and maintains the friend edge set.
//
// NOTE:
//   - Friends is the materialized friendship edge set and is symmetric:
//     if A lists B then B lists A. It is only ever changed with
//     $addToSet / $pull, never by rewriting the array.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	FullName         string               `bson:"full_name" json:"fullName"`
	FullNameCI       string               `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	ProfilePic       string               `bson:"profile_pic" json:"profilePic"`
	Bio              string               `bson:"bio,omitempty" json:"bio,omitempty"`
	NativeLanguage   string               `bson:"native_language,omitempty" json:"nativeLanguage,omitempty"`
	LearningLanguage string               `bson:"learning_language,omitempty" json:"learningLanguage,omitempty"`
	Location         string               `bson:"location,omitempty" json:"location,omitempty"`
	IsOnboarded      bool                 `bson:"is_onboarded" json:"isOnboarded"`
	Friends          []primitive.ObjectID `bson:"friends" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasFriend reports whether id is in the user's friend set.
func (u User) HasFriend(id primitive.ObjectID) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// Summary returns the public profile card for u.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:               u.ID,
		FullName:         u.FullName,
		ProfilePic:       u.ProfilePic,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
	}
}

// UserSummary is the subset of a profile that is safe to show other users
// and to embed in notifications.
type UserSummary struct {
	ID               primitive.ObjectID `bson:"_id" json:"_id"`
	FullName         string             `bson:"full_name" json:"fullName"`
	ProfilePic       string             `bson:"profile_pic" json:"profilePic"`
	NativeLanguage   string             `bson:"native_language,omitempty" json:"nativeLanguage,omitempty"`
	LearningLanguage string             `bson:"learning_language,omitempty" json:"learningLanguage,omitempty"`
}
