package models

import "time"

type Project struct {
	ID        string
	CompanyID string
	Name      string
	Address   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
