package domain

import "time"

// Client is the slice of the back-office client record this core reads for
// the recurring birthday job. The full record is owned by the CRUD layer.
type Client struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	FirstName string    `bson:"first_name" json:"first_name"`
	Birthday  time.Time `bson:"birthday" json:"birthday"`
}
