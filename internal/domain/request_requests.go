package domain

import "github.com/google/uuid"

type CreateRequest struct {
	Name         string   `json:"name" validate:"notblank,max=200"`
	Members      int      `json:"members" validate:"gt=0,max=100000"`
	Description  string   `json:"description" validate:"max=4000"`
	Address      string   `json:"address" validate:"max=500"`
	Lat          *float64 `json:"lat" validate:"required,lat"`
	Lon          *float64 `json:"lon" validate:"required,lng"`
	OwnerID      string   `json:"ownerId" validate:"notblank,max=128"`
	OwnerContact string   `json:"ownerContact" validate:"notblank,max=320"`
}

type ClaimRequest struct {
	ID       uuid.UUID `json:"id"`
	HelperID string    `json:"helperId" validate:"notblank,max=128"`
}

type CancelRequest struct {
	ID       uuid.UUID `json:"id"`
	CallerID string    `json:"callerId" validate:"notblank,max=128"`
}

// ChangeStatusRequest is the body of the generic status endpoint.
type ChangeStatusRequest struct {
	Status   RequestStatus `json:"status" validate:"required,oneof=in-progress completed cancelled"`
	HelperID string        `json:"helperId" validate:"max=128"`
}

// NearbyQuery leaves RadiusKM nil to request the default radius.
type NearbyQuery struct {
	Lat      *float64 `json:"lat" validate:"required,lat"`
	Lon      *float64 `json:"lon" validate:"required,lng"`
	RadiusKM *float64 `json:"radiusKm" validate:"omitempty,radius_km"`
}
