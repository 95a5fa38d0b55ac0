package domain

// ManualConfirmationRequest asks for a single ad-hoc confirmation send
type ManualConfirmationRequest struct {
	GameID      string `json:"game_id" binding:"required"`
	PlayerID    string `json:"player_id" binding:"required"`
	SessionDate string `json:"session_date,omitempty"` // RFC3339; defaults to the game's next session
}

// BroadcastRequest asks for an ad-hoc message to every active player of a game
type BroadcastRequest struct {
	GameID  string `json:"game_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// GetSendLogsRequest filters dispatch history
type GetSendLogsRequest struct {
	GameID   string `form:"game_id"`
	PlayerID string `form:"player_id"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// SetIntervalRequest changes the scheduler tick interval
type SetIntervalRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}
