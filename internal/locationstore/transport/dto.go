package transport

// UpdateLocationRequest is the body of PUT /users/me/location.
type UpdateLocationRequest struct {
	Latitude  float64  `json:"latitude" validate:"latitude"`
	Longitude float64  `json:"longitude" validate:"longitude"`
	AccuracyM *float64 `json:"accuracyM,omitempty" validate:"omitempty,min=0"`
}

// LocationResponse is the stored position of a user. Every field is null
// when the user never shared a location. LocationUpdatedAt is epoch
// milliseconds.
type LocationResponse struct {
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	AccuracyM         *float64 `json:"accuracyM,omitempty"`
	LocationUpdatedAt *int64   `json:"locationUpdatedAt"`
}

// HistoryRequest holds the query parameters of the history endpoint.
type HistoryRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=500"`
}

// HistoryResponse lists recent positions, newest first.
type HistoryResponse struct {
	Items []LocationResponse `json:"items"`
}
