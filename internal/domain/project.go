package domain

import "time"

// ProjectStatus is the review state of a marketplace project.
type ProjectStatus string

const (
	ProjectPending  ProjectStatus = "pending"
	ProjectApproved ProjectStatus = "approved"
	ProjectRejected ProjectStatus = "rejected"
)

// Project is a listing submitted for admin review.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Owner     string        `json:"owner"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
