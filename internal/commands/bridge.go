// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package commands implements the operations the UI invokes by name.
//
// Bridge forwards backend operations through the session manager: each method is
// one guarded call that builds a request, invokes a single backend method and maps
// the reply. Local operations (models directory checks, catalog queries,
// thumbnails) live on Local and never touch the session. Registry ties both to the
// invoke names and flattens errors at the boundary.
package commands

import (
	"context"

	"github.com/rs/zerolog"

	"assistbridge/cli/internal/bridge"
	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/session"
)

// ClientName identifies this process to the backend in ConnectClient.
const ClientName = "assistbridge"

// Bridge forwards UI operations to the backend. It holds no state of its own.
type Bridge struct {
	sessions *session.Manager
	version  string
	log      zerolog.Logger
}

// NewBridge returns a Bridge over m. version is reported to the backend on connect.
func NewBridge(m *session.Manager, version string, log zerolog.Logger) *Bridge {
	return &Bridge{sessions: m, version: version, log: log}
}

// Session returns the underlying session manager.
func (b *Bridge) Session() *session.Manager { return b.sessions }

// unary invokes one backend method and returns the reply text.
func (b *Bridge) unary(ctx context.Context, method string, req any) (string, error) {
	return session.Call(ctx, b.sessions, func(ctx context.Context, conn bridge.Conn) (string, error) {
		var reply model.Reply
		if err := conn.Invoke(ctx, method, req, &reply); err != nil {
			return "", err
		}
		return reply.Text(), nil
	})
}

// Connect opens the backend session and registers this client with it.
func (b *Bridge) Connect(ctx context.Context) (string, error) {
	if err := b.sessions.Connect(ctx); err != nil {
		return "", err
	}
	msg, err := b.unary(ctx, bridge.MethodConnectClient, model.ConnectRequest{
		ClientName:    ClientName,
		ClientVersion: b.version,
	})
	if err != nil {
		return "", err
	}
	b.log.Info().Str("addr", b.sessions.Addr()).Msg("client registered with backend")
	return msg, nil
}

// Disconnect tears the session down. It is safe to call when not connected.
func (b *Bridge) Disconnect(ctx context.Context) error {
	return b.sessions.Disconnect(ctx)
}

func (b *Bridge) SayHello(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodSayHello, model.SayHelloRequest{Name: name})
}

func (b *Bridge) SayHelloPyllm(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodSayHelloPyllm, model.SayHelloRequest{Name: name})
}

// HealthCheck asks the backend for the status of one component ("llm", "db", ...).
func (b *Bridge) HealthCheck(ctx context.Context, typeOfCheck string) (string, error) {
	return session.Call(ctx, b.sessions, func(ctx context.Context, conn bridge.Conn) (string, error) {
		var reply model.HealthReply
		if err := conn.Invoke(ctx, bridge.MethodCheckHealth, model.HealthRequest{TypeOfCheck: typeOfCheck}, &reply); err != nil {
			return "", err
		}
		return reply.Status, nil
	})
}

func (b *Bridge) GetConfig(ctx context.Context, req model.ConfigRequest) (string, error) {
	return b.unary(ctx, bridge.MethodGetClientConfig, req)
}

func (b *Bridge) SetUserConfigViewModel(ctx context.Context, vm string) (string, error) {
	return b.unary(ctx, bridge.MethodSetUserConfigViewModel, model.ViewModelRequest{ViewModel: vm})
}

func (b *Bridge) SetAssistantViewModel(ctx context.Context, vm string) (string, error) {
	return b.unary(ctx, bridge.MethodSetAssistantViewModel, model.ViewModelRequest{ViewModel: vm})
}

func (b *Bridge) UpdateNotification(ctx context.Context, req model.NotificationRequest) (string, error) {
	return b.unary(ctx, bridge.MethodUpdateNotification, req)
}

func (b *Bridge) SetParameters(ctx context.Context, req model.ParametersRequest) (string, error) {
	return b.unary(ctx, bridge.MethodSetParameters, req)
}

func (b *Bridge) SetModels(ctx context.Context, req model.SetModelsRequest) (string, error) {
	return b.unary(ctx, bridge.MethodSetModels, req)
}

func (b *Bridge) UpdateDBModels(ctx context.Context, models []string) (string, error) {
	return b.unary(ctx, bridge.MethodUpdateDBModels, model.DBModelsRequest{Models: nonNil(models)})
}

func (b *Bridge) ExportUserConfig(ctx context.Context, path string) (string, error) {
	return b.unary(ctx, bridge.MethodExportUserConfig, model.ConfigFileRequest{Path: path})
}

func (b *Bridge) ImportUserConfig(ctx context.Context, path string) (string, error) {
	return b.unary(ctx, bridge.MethodImportUserConfig, model.ConfigFileRequest{Path: path})
}

func (b *Bridge) SendFeedback(ctx context.Context, req model.FeedbackRequest) (string, error) {
	return b.unary(ctx, bridge.MethodSendFeedback, req)
}

func (b *Bridge) SendEmail(ctx context.Context, req model.EmailRequest) (string, error) {
	return b.unary(ctx, bridge.MethodSendEmail, req)
}

func (b *Bridge) StopChat(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodStopChat, model.Empty{})
}

// GetChatHistory returns the backend's JSON document of stored sessions.
func (b *Bridge) GetChatHistory(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodGetChatHistory, model.Empty{})
}

func (b *Bridge) RemoveSession(ctx context.Context, sessionID int) (string, error) {
	return b.unary(ctx, bridge.MethodRemoveSession, model.SessionRequest{SessionID: sessionID})
}

func (b *Bridge) SetSessionName(ctx context.Context, sessionID int, name string) (string, error) {
	return b.unary(ctx, bridge.MethodSetSessionName, model.SessionRequest{SessionID: sessionID, Name: name})
}

func (b *Bridge) StopUploadFile(ctx context.Context, uploadID string) (string, error) {
	return b.unary(ctx, bridge.MethodStopUploadFile, model.UploadIDRequest{UploadID: uploadID})
}

func (b *Bridge) RemoveFile(ctx context.Context, fileName string) (string, error) {
	return b.unary(ctx, bridge.MethodRemoveFile, model.FileNameRequest{FileName: fileName})
}

func (b *Bridge) GetFileList(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodGetFileList, model.Empty{})
}

func (b *Bridge) LoadModels(ctx context.Context, models []string) (string, error) {
	return b.unary(ctx, bridge.MethodLoadModels, model.LoadModelsRequest{Models: nonNil(models)})
}

func (b *Bridge) ConvertModel(ctx context.Context, req model.ModelRequest) (string, error) {
	return b.unary(ctx, bridge.MethodConvertModel, req)
}

func (b *Bridge) UploadModel(ctx context.Context, req model.ModelRequest) (string, error) {
	return b.unary(ctx, bridge.MethodUploadModel, req)
}

func (b *Bridge) RemoveModel(ctx context.Context, req model.ModelRequest) (string, error) {
	return b.unary(ctx, bridge.MethodRemoveModel, req)
}

func (b *Bridge) ValidateModel(ctx context.Context, req model.ModelRequest) (string, error) {
	return b.unary(ctx, bridge.MethodValidateModel, req)
}

func (b *Bridge) GetMCPAgents(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodGetMCPAgents, model.Empty{})
}

func (b *Bridge) GetActiveMCPAgents(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodGetActiveMCPAgents, model.Empty{})
}

func (b *Bridge) AddMCPAgent(ctx context.Context, agent model.MCPAgent) (string, error) {
	return b.unary(ctx, bridge.MethodAddMCPAgent, model.MCPAgentRequest{Agent: agent})
}

func (b *Bridge) EditMCPAgent(ctx context.Context, agent model.MCPAgent) (string, error) {
	return b.unary(ctx, bridge.MethodEditMCPAgent, model.MCPAgentRequest{Agent: agent})
}

func (b *Bridge) RemoveMCPAgent(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodRemoveMCPAgent, model.MCPAgentNameRequest{AgentName: name})
}

func (b *Bridge) StartMCPAgent(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodStartMCPAgent, model.MCPAgentNameRequest{AgentName: name})
}

func (b *Bridge) StopMCPAgent(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodStopMCPAgent, model.MCPAgentNameRequest{AgentName: name})
}

func (b *Bridge) GetMCPServers(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodGetMCPServers, model.Empty{})
}

func (b *Bridge) GetActiveMCPServers(ctx context.Context) (string, error) {
	return b.unary(ctx, bridge.MethodGetActiveMCPServers, model.Empty{})
}

func (b *Bridge) AddMCPServer(ctx context.Context, server model.MCPServer) (string, error) {
	return b.unary(ctx, bridge.MethodAddMCPServer, model.MCPServerRequest{Server: server})
}

func (b *Bridge) EditMCPServer(ctx context.Context, server model.MCPServer) (string, error) {
	return b.unary(ctx, bridge.MethodEditMCPServer, model.MCPServerRequest{Server: server})
}

func (b *Bridge) RemoveMCPServer(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodRemoveMCPServer, model.MCPServerNameRequest{ServerName: name})
}

func (b *Bridge) StartMCPServer(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodStartMCPServer, model.MCPServerNameRequest{ServerName: name})
}

func (b *Bridge) StopMCPServer(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodStopMCPServer, model.MCPServerNameRequest{ServerName: name})
}

// GetMCPServerTools lists the tools a running server exposes, as JSON.
func (b *Bridge) GetMCPServerTools(ctx context.Context, name string) (string, error) {
	return b.unary(ctx, bridge.MethodGetMCPServerTools, model.MCPServerNameRequest{ServerName: name})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
