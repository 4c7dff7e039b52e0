package domain

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusActive     RequestStatus = "active"
	StatusInProgress RequestStatus = "in-progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []RequestStatus{StatusActive, StatusInProgress, StatusCompleted, StatusCancelled}

// TerminalStatuses never leave their state and are not offered to helpers.
var TerminalStatuses = []RequestStatus{StatusCompleted, StatusCancelled}

var transitions = map[RequestStatus][]RequestStatus{
	StatusActive:     {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// HoldsHelper reports whether a record in this status must carry a helper id.
func (s RequestStatus) HoldsHelper() bool {
	return s == StatusInProgress || s == StatusCompleted
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

type Location struct {
	Lat float64 `json:"lat"` // -90..90
	Lon float64 `json:"lon"` // -180..180
}

type Request struct {
	ID            uuid.UUID     `json:"id"`
	RequesterName string        `json:"requesterName"`
	MemberCount   int           `json:"memberCount"`
	Description   string        `json:"description"`
	Address       string        `json:"address"`
	Location      Location      `json:"location"`
	OwnerID       string        `json:"ownerId"`
	OwnerContact  string        `json:"ownerContact"`
	Status        RequestStatus `json:"status"`
	HelperID      *string       `json:"helperId"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Helper returns the claiming user id or "" when unassigned.
func (r *Request) Helper() string {
	if r.HelperID == nil {
		return ""
	}
	return *r.HelperID
}

type NearbyRequest struct {
	Request
	DistanceKM float64 `json:"distanceKm"`
}

// StatusUpdate is a compare-and-set on status: it applies only while the
// stored status equals Expected.
type StatusUpdate struct {
	Expected      RequestStatus
	Next          RequestStatus
	AssignHelper  string
	ReleaseHelper bool
	UpdatedAt     time.Time
}

// Apply mutates r as the store would on a successful update.
func (u StatusUpdate) Apply(r *Request) {
	r.Status = u.Next
	switch {
	case u.ReleaseHelper:
		r.HelperID = nil
	case u.AssignHelper != "":
		h := u.AssignHelper
		r.HelperID = &h
	}
	r.UpdatedAt = u.UpdatedAt
}

// Clone returns a copy that shares no pointers with r.
func (r *Request) Clone() *Request {
	c := *r
	if r.HelperID != nil {
		h := *r.HelperID
		c.HelperID = &h
	}
	return &c
}
