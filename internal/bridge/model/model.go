// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the request and reply shapes exchanged with the assistant
// backend. The types are transport-agnostic: JSON tags name the wire fields, and
// the same camelCase keys are what UI callers send to the invoke server.
package model

// Empty is the request for calls that take no arguments.
type Empty struct{}

// Reply is the common backend answer. Most calls return a status sentence in
// Message; list-style calls return a JSON document in Data.
type Reply struct {
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Text returns Data when present, otherwise Message.
func (r Reply) Text() string {
	if r.Data != "" {
		return r.Data
	}
	return r.Message
}

type SayHelloRequest struct {
	Name string `json:"name"`
}

type HealthRequest struct {
	TypeOfCheck string `json:"typeOfCheck"`
}

type HealthReply struct {
	Status string `json:"status"`
}

// ConnectRequest registers this process as the backend's UI client.
type ConnectRequest struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion,omitempty"`
}

type ConfigRequest struct {
	AssistantName string `json:"assistantName,omitempty"`
	Language      string `json:"language,omitempty"`
}

// ViewModelRequest carries a serialized view model (user config or assistant).
type ViewModelRequest struct {
	ViewModel string `json:"vm"`
}

type NotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type ParametersRequest struct {
	ModelName  string `json:"modelName,omitempty"`
	Parameters string `json:"parameters"`
}

type SetModelsRequest struct {
	ChatModel      string `json:"chatModel,omitempty"`
	EmbeddingModel string `json:"embeddingModel,omitempty"`
	RankerModel    string `json:"rankerModel,omitempty"`
}

type DBModelsRequest struct {
	Models []string `json:"models"`
}

type ConfigFileRequest struct {
	Path string `json:"path"`
}

type FeedbackRequest struct {
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

type EmailRequest struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments,omitempty"`
}

// ConversationTurn is one prior message sent along with a chat prompt.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Name          string             `json:"name"`
	Prompt        string             `json:"prompt"`
	SessionID     int                `json:"sessionId"`
	History       []ConversationTurn `json:"history,omitempty"`
	AttachedFiles []string           `json:"attachedFiles,omitempty"`
	PromptOptions string             `json:"promptOptions,omitempty"`
}

// ChatChunk is one streamed piece of an answer.
type ChatChunk struct {
	Message string `json:"message"`
}

type SessionRequest struct {
	SessionID int    `json:"sessionId"`
	Name      string `json:"name,omitempty"`
}

// UploadFileRequest sends one local file's content to the backend knowledge base.
type UploadFileRequest struct {
	UploadID string `json:"uploadId"`
	FileName string `json:"fileName"`
	Content  []byte `json:"content"`
}

type UploadIDRequest struct {
	UploadID string `json:"uploadId"`
}

type FileNameRequest struct {
	FileName string `json:"fileName"`
}

type FilesRequest struct {
	Files []string `json:"files"`
}

// FileChunk is one streamed piece of a downloaded file.
type FileChunk struct {
	FileName string `json:"fileName,omitempty"`
	Content  []byte `json:"content"`
}

type ModelRequest struct {
	ModelName  string `json:"modelName"`
	ModelPath  string `json:"modelPath,omitempty"`
	OutputPath string `json:"outputPath,omitempty"`
	Precision  string `json:"precision,omitempty"`
	Device     string `json:"device,omitempty"`
}

type LoadModelsRequest struct {
	Models []string `json:"models"`
}

// MCPServer describes an MCP server registered with the backend.
type MCPServer struct {
	ID         int    `json:"id,omitempty"`
	ServerName string `json:"serverName"`
	Command    string `json:"command,omitempty"`
	Args       string `json:"args,omitempty"`
	URL        string `json:"url,omitempty"`
	Env        string `json:"env,omitempty"`
	Disabled   bool   `json:"disabled,omitempty"`
}

type MCPServerRequest struct {
	Server MCPServer `json:"server"`
}

type MCPServerNameRequest struct {
	ServerName string `json:"serverName"`
}

// MCPAgent describes an MCP agent bound to a set of servers.
type MCPAgent struct {
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name"`
	Desc      string `json:"desc,omitempty"`
	Message   string `json:"message,omitempty"`
	ServerIDs []int  `json:"serverIds"`
}

type MCPAgentRequest struct {
	Agent MCPAgent `json:"agent"`
}

type MCPAgentNameRequest struct {
	AgentName string `json:"agentName"`
}

// ChatEventType is the kind of a ChatEvent.
type ChatEventType string

const (
	ChatEventChunk ChatEventType = "chunk"
	ChatEventDone  ChatEventType = "done"
	ChatEventError ChatEventType = "error"
)

// ChatEvent is what streaming consumers (websocket, terminal) receive while a
// chat call is in flight.
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	Text    string        `json:"text,omitempty"`
	Message string        `json:"message,omitempty"`
}
