package models

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Ready         bool   `json:"ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Scenarios     int    `json:"scenarios"`
}

type ScenarioListResponse struct {
	Seed      int64             `json:"seed"`
	Scenarios []ScenarioSummary `json:"scenarios"`
}

type ScenarioSummary struct {
	Name         string   `json:"name"`
	Noise        int      `json:"noise"`
	MarketMakers int      `json:"market_makers"`
	Momentum     int      `json:"momentum"`
	TradeCount   int      `json:"trade_count"`
	Volume       int64    `json:"volume"`
	VWAP         *float64 `json:"vwap"` // null when nothing traded
}

type ScenarioDetailResponse struct {
	ScenarioSummary
	Seed       int64          `json:"seed"`
	Horizon    float64        `json:"horizon"`
	AvgSpread  float64        `json:"avg_spread"`
	Volatility float64        `json:"volatility"`
	LastMid    float64        `json:"last_mid"`
	Events     int            `json:"events"`
	Orders     int            `json:"orders"`
	ElapsedMs  int64          `json:"elapsed_ms"`
	Agents     []AgentSummary `json:"agents"`
}

type AgentSummary struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Inventory int64  `json:"inventory"`
	Balance   string `json:"balance"` // decimal string, exact to the cent
}

type SnapshotRow struct {
	Timestamp float64  `json:"timestamp"` // simulated seconds
	BestBid   *float64 `json:"best_bid"`  // null when the side is empty
	BestAsk   *float64 `json:"best_ask"`
	MidPrice  float64  `json:"mid_price"`
	Spread    float64  `json:"spread"`
}

type SnapshotsResponse struct {
	Scenario  string        `json:"scenario"`
	Total     int           `json:"total"`
	Snapshots []SnapshotRow `json:"snapshots"`
}

type TradeInfo struct {
	TradeID       string  `json:"trade_id"`
	Timestamp     float64 `json:"timestamp"`
	Price         float64 `json:"price"`
	Quantity      int64   `json:"quantity"`
	BuyerID       string  `json:"buyer_id"`
	SellerID      string  `json:"seller_id"`
	AggressorSide string  `json:"aggressor_side"`
}

type TradesResponse struct {
	Scenario string      `json:"scenario"`
	Total    int         `json:"total"`
	Trades   []TradeInfo `json:"trades"`
}

type PriceLevelInfo struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type DepthResponse struct {
	Scenario  string           `json:"scenario"`
	Timestamp float64          `json:"timestamp"`
	Bids      []PriceLevelInfo `json:"bids"` // best first
	Asks      []PriceLevelInfo `json:"asks"` // best first
}
