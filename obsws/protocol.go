package obsws

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// obs-websocket v5 opcodes
const (
	OpHello           = 0
	OpIdentify        = 1
	OpIdentified      = 2
	OpEvent           = 5
	OpRequest         = 6
	OpRequestResponse = 7
)

// RPCVersion is the obs-websocket RPC version this client speaks
const RPCVersion = 1

// Subprotocol negotiated during the websocket handshake
const Subprotocol = "obswebsocket.json"

// Request status codes used by the client
const (
	StatusSuccess          = 100
	StatusResourceNotFound = 600
)

// Close code sent by the server on a bad password
const CloseAuthenticationFailed = 4009

// Message is the envelope of every obs-websocket frame
type Message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type Hello struct {
	OBSWebSocketVersion string         `json:"obsWebSocketVersion"`
	RPCVersion          int            `json:"rpcVersion"`
	Authentication      *Authenticator `json:"authentication,omitempty"`
}

type Authenticator struct {
	Challenge string `json:"challenge"`
	Salt      string `json:"salt"`
}

type Identify struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

type Identified struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

type Request struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

type RequestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

type RequestResponse struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus RequestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

// RequestError is returned when the server reports a failed request status
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Comment == "" {
		return fmt.Sprintf("%s failed with status %d", e.RequestType, e.Code)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.RequestType, e.Code, e.Comment)
}

// AuthResponse computes the Identify authentication string for a password
func AuthResponse(password string, auth *Authenticator) string {
	secret := sha256.Sum256([]byte(password + auth.Salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])
	resp := sha256.Sum256([]byte(secretB64 + auth.Challenge))
	return base64.StdEncoding.EncodeToString(resp[:])
}

func encode(op int, d any) (*Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode op %d: %w", op, err)
	}
	return &Message{Op: op, D: data}, nil
}
