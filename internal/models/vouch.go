package models

import (
	"fmt"
	"time"
)

// Vouch is one supplier vouching for another. A supplier can vouch for a
// given peer at most once; the (VouchedByID, VouchedForID) pair is the key.
type Vouch struct {
	ID           string    `json:"id" dynamodbav:"id"`
	VouchedByID  int64     `json:"vouched_by_id" dynamodbav:"vouched_by_id"`
	VouchedForID int64     `json:"vouched_for_id" dynamodbav:"vouched_for_id"`
	Message      string    `json:"message,omitempty" dynamodbav:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
}

func (v *Vouch) GetPK() string {
	return fmt.Sprintf("VOUCH#%d#%d", v.VouchedByID, v.VouchedForID)
}

func (v *Vouch) GetSK() string {
	return "METADATA"
}
