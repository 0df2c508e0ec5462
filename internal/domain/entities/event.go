package entities

import (
	"encoding/json"
	"time"
)

// EventType represents an on-chain event kind. The set is closed: routing
// happens through an exhaustive switch so a new kind is a compile-time
// decision, not a runtime registration.
type EventType string

const (
	EventCommunityCreated      EventType = "CommunityCreated"
	EventCommunityUpdated      EventType = "CommunityUpdated"
	EventMemberJoined          EventType = "MemberJoined"
	EventMemberLeft            EventType = "MemberLeft"
	EventMemberRoleChanged     EventType = "MemberRoleChanged"
	EventVotingQuestionCreated EventType = "VotingQuestionCreated"
	EventVotingQuestionUpdated EventType = "VotingQuestionUpdated"
	EventVotingEnded           EventType = "VotingEnded"
	EventVoteCast              EventType = "VoteCast"
)

// ParseEventType validates a raw event type string.
func ParseEventType(raw string) (EventType, bool) {
	t := EventType(raw)
	switch t {
	case EventCommunityCreated, EventCommunityUpdated,
		EventMemberJoined, EventMemberLeft, EventMemberRoleChanged,
		EventVotingQuestionCreated, EventVotingQuestionUpdated,
		EventVotingEnded, EventVoteCast:
		return t, true
	}
	return "", false
}

// ChainEvent is a single chain-change notification awaiting application.
type ChainEvent struct {
	Type          EventType       `json:"eventType"`
	Data          json.RawMessage `json:"data"`
	Network       string          `json:"network"`
	TransactionID string          `json:"transactionId"`
	BlockNumber   int64           `json:"blockNumber"`
	ReceivedAt    time.Time       `json:"receivedAt"`
}

// Per-event payloads carried in ChainEvent.Data.

type CommunityCreatedData struct {
	CommunityID string          `json:"communityId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Creator     string          `json:"creator"`
	Config      json.RawMessage `json:"config"`
}

type CommunityUpdatedData struct {
	CommunityID string          `json:"communityId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
}

type MemberEventData struct {
	CommunityID   string `json:"communityId"`
	MemberAddress string `json:"memberAddress"`
	Role          string `json:"role"`
}

type QuestionCreatedData struct {
	QuestionID  string    `json:"questionId"`
	CommunityID string    `json:"communityId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []string  `json:"options"`
	Deadline    time.Time `json:"deadline"`
	Creator     string    `json:"creator"`
}

type QuestionUpdatedData struct {
	QuestionID  string    `json:"questionId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []string  `json:"options"`
	Deadline    time.Time `json:"deadline"`
}

type VotingEndedData struct {
	QuestionID string `json:"questionId"`
}

type VoteCastData struct {
	QuestionID   string          `json:"questionId"`
	VoterAddress string          `json:"voterAddress"`
	VoteData     json.RawMessage `json:"voteData"`
	Signature    string          `json:"signature"`
}
