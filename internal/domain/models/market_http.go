package models

// Requests for the market HTTP endpoints.

type AssetPathRequest struct {
	ID int64 `param:"id" json:"id" validate:"required,gte=1"`
}

type MarketDataRequest struct {
	ID    int64 `param:"id" json:"id" validate:"required,gte=1"`
	Limit int   `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type RecentPredictionsRequest struct {
	Limit int `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}
