package coingecko

type trendingResponse struct {
	Coins []trendingEntry `json:"coins"`
}

type trendingEntry struct {
	Score int          `json:"score"`
	Item  trendingItem `json:"item"`
}

type trendingItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Score  int    `json:"score"`
}
