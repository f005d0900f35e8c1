package cache

// Chaves compartilhadas entre sync-service e stats-worker
func PublicDataKey(userID string) string   { return "public:betting:" + userID }
func ConfidenceKey(userID string) string   { return "confidence:" + userID }
func SubscriptionKey(userID string) string { return "subscription:" + userID }
