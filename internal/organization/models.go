package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant. Every user and business record belongs to one.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Usage     Usage     `json:"usage"`
}

// Usage reflects how many records the organization holds.
type Usage struct {
	Users      int64 `json:"users"`
	Customers  int64 `json:"customers"`
	Employees  int64 `json:"employees"`
	Products   int64 `json:"products"`
	Quotations int64 `json:"quotations"`
}
