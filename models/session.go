package models

type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsPresent reports whether an access credential is stored
func (c Credentials) IsPresent() bool {
	return c.AccessToken != ""
}

type AuthResponse struct {
	Credentials
	User User `json:"user"`
}

type LocationView string

const (
	LocationServer LocationView = "server"
	LocationDM     LocationView = "dm"
	LocationHome   LocationView = "home"
)

// Location is the last place the user visited
type Location struct {
	View      LocationView `json:"view"`
	ServerID  string       `json:"server_id,omitempty"`
	ChannelID string       `json:"channel_id,omitempty"`
}

type VoicePreferences struct {
	InputDeviceID  string  `json:"input_device_id,omitempty"`
	OutputDeviceID string  `json:"output_device_id,omitempty"`
	InputVolume    float64 `json:"input_volume"`
	OutputVolume   float64 `json:"output_volume"`
}

type SidebarFlags struct {
	MemberListVisible bool            `json:"member_list_visible"`
	CollapsedSections map[string]bool `json:"collapsed_sections,omitempty"`
}
