package models

type RelationshipType string

const (
	RelationshipFriend          RelationshipType = "friend"
	RelationshipBlocked         RelationshipType = "blocked"
	RelationshipIncomingRequest RelationshipType = "incoming_request"
	RelationshipOutgoingRequest RelationshipType = "outgoing_request"
)

type Relationship struct {
	// ID is the other user's id
	ID   string           `json:"id"`
	Type RelationshipType `json:"type"`
	User User             `json:"user"`
}
