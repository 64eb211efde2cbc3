package models

// StoreStats summarizes synced collection sizes
type StoreStats struct {
	Servers        int      `json:"servers"`
	Channels       int      `json:"channels"`
	Relationships  int      `json:"relationships"`
	Presences      int      `json:"presences"`
	CachedChannels []string `json:"cached_channels"`
	CachedMessages int      `json:"cached_messages"`
}

type GatewayReport struct {
	State        string `json:"state"`
	ConnectionID string `json:"connection_id,omitempty"`
	Sequence     *int64 `json:"sequence,omitempty"`
	Attempt      int    `json:"attempt"`
	LastError    string `json:"last_error,omitempty"`
}

// StatusReport is what the local status endpoint serves
type StatusReport struct {
	Gateway       GatewayReport  `json:"gateway"`
	Store         StoreStats     `json:"store"`
	Status        PresenceStatus `json:"status"`
	ActiveChannel string         `json:"active_channel,omitempty"`
	Sessions      int            `json:"sessions"`
}
