package domain

type RequestStats struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}
