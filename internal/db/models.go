package db

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"-"`
	Name           *string   `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusBlocked    TaskStatus = "blocked"
)

// TaskStatuses lists every status a task may hold, in display order.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusDone, StatusBlocked}

// CreatableStatuses lists the statuses a task may be created with.
var CreatableStatuses = []TaskStatus{StatusPending, StatusInProgress}

type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	UserID    string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Claims carried by access tokens. Subject holds the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GetNotBefore hides nbf from the jwt validator: expiry is the only
// time-checked claim.
func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}
