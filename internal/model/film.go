package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Film is the document inserted into the Movies collection. Actors holds
// references to Actor documents, resolved from names when the film is
// inserted.
//
// Fields:
//
//	ID          – _id assigned at insert time, never changed.
//	Name        – film title.
//	Description – free-form synopsis.
//	ReleaseDate – release timestamp; nil when the client date was unusable.
//	ImageURL    – poster image URL.
//	Actors      – ordered Actor ids.
type Film struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name        string          `bson:"name" json:"name"`
	Description string          `bson:"description" json:"description"`
	ReleaseDate *time.Time      `bson:"releaseDate" json:"releaseDate"`
	ImageURL    string          `bson:"imageurl" json:"imageurl"`
	Actors      []bson.ObjectID `bson:"actors" json:"actors"`
}
