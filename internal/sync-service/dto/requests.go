package dto

type SyncBetsRequest struct {
	UserID          string `json:"userId,omitempty"` // só service_role sincroniza outro usuário
	BettorID        string `json:"bettorId,omitempty"`
	BettorAccountID string `json:"bettorAccountId,omitempty"`
	// forceRefresh=true pula o refresh (logo após o 2FA)
	SkipRefresh bool `json:"forceRefresh,omitempty"`
}

type ClearAndSyncRequest struct {
	UserIDs []string `json:"userIds,omitempty"` // vazio = todos os vinculados
}

type CalculateStatlineRequest struct {
	UserID string `json:"userId,omitempty"`
}
