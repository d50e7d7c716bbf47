package models

// SignalType represents the type of a WebRTC signaling message
type SignalType string

const (
	SignalTypeRegister  SignalType = "register"
	SignalTypeOffer     SignalType = "offer"
	SignalTypeAnswer    SignalType = "answer"
	SignalTypeCandidate SignalType = "candidate"
)

// SignalingMessage is the JSON object a peer sends over its connection.
// Unknown fields are ignored when decoding.
type SignalingMessage struct {
	Type           SignalType `json:"type"`
	From           string     `json:"from,omitempty"`
	To             string     `json:"to,omitempty"`
	GroupID        string     `json:"groupId,omitempty"`
	SDP            string     `json:"sdp,omitempty"`
	Candidate      string     `json:"candidate,omitempty"`
	Email          string     `json:"email,omitempty"`
	Token          string     `json:"token,omitempty"`
	ConversationID string     `json:"conversationId,omitempty"`
}

// IsSignal reports whether the message carries peer-to-peer signaling data.
func (m *SignalingMessage) IsSignal() bool {
	switch m.Type {
	case SignalTypeOffer, SignalTypeAnswer, SignalTypeCandidate:
		return true
	}
	return false
}

// Response is the envelope for every reply the relay itself produces.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RegistrationData is returned on a successful register.
type RegistrationData struct {
	ConnectionID string `json:"connectionId"`
	Email        string `json:"email"`
}

func Success(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

func Failure(message string) Response {
	return Response{Success: false, Message: message}
}
