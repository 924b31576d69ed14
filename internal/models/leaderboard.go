package models

type LeaderboardItem struct {
	UserId int64   `json:"user_id"`
	Score  float64 `json:"score"`
	Rank   int     `json:"rank"`

	Username string `json:"username,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type LeaderboardResponse struct {
	Leaderboard []*LeaderboardItem `json:"leaderboard"`
	Me          *LeaderboardItem   `json:"me"`
}
