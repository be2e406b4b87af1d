package models

import (
	"fmt"
	"time"
)

type Supplier struct {
	ID           int64     `json:"id" dynamodbav:"id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	TotalVouches int64     `json:"total_vouches" dynamodbav:"total_vouches"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

func (s *Supplier) GetPK() string {
	return fmt.Sprintf("SUPPLIER#%d", s.ID)
}

func (s *Supplier) GetSK() string {
	return "METADATA"
}
