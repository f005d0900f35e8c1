package topics

const (
	// Sync
	BetsSynced = "bets_synced"

	// Billing
	SubscriptionChanged = "subscription_changed"

	// DLQs
	BetsSyncedDLQ = "bets_synced_dlq"
)
