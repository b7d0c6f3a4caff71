package model

import "go.mongodb.org/mongo-driver/v2/bson"

// Actor is the document inserted into the Actors collection. Age is kept as
// the client sent it, usually a number.
type Actor struct {
	ID       bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name     string        `bson:"name" json:"name"`
	Age      any           `bson:"age" json:"age"`
	ImageURL string        `bson:"imageurl" json:"imageurl"`
}
