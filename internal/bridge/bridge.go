// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge defines the transport abstraction between the CLI and the
// assistant backend. A Conn is the single live session with the backend; it is
// created by a Dialer and is only ever touched through the session manager.
//
// The package keeps the wire details (gRPC, message encoding) out of the callers:
// requests and replies are plain Go values from the model package and methods are
// addressed by the constants below.
package bridge

import (
	"context"
)

// Service is the fully-qualified gRPC service name of the assistant backend.
const Service = "super_builder.SuperBuilder"

// Backend method names.
const (
	MethodSayHello               = "SayHello"
	MethodSayHelloPyllm          = "SayHelloPyllm"
	MethodCheckHealth            = "CheckHealth"
	MethodConnectClient          = "ConnectClient"
	MethodDisconnectClient       = "DisconnectClient"
	MethodGetClientConfig        = "GetClientConfig"
	MethodSetUserConfigViewModel = "SetUserConfigViewModel"
	MethodSetAssistantViewModel  = "SetAssistantViewModel"
	MethodUpdateNotification     = "UpdateNotification"
	MethodSetParameters          = "SetParameters"
	MethodSetModels              = "SetModels"
	MethodUpdateDBModels         = "UpdateDBModels"
	MethodExportUserConfig       = "ExportUserConfig"
	MethodImportUserConfig       = "ImportUserConfig"
	MethodSendFeedback           = "SendFeedback"
	MethodSendEmail              = "SendEmail"

	MethodChat           = "Chat"
	MethodStopChat       = "StopChat"
	MethodGetChatHistory = "GetChatHistory"
	MethodRemoveSession  = "RemoveSession"
	MethodSetSessionName = "SetSessionName"

	MethodUploadFile     = "UploadFile"
	MethodStopUploadFile = "StopUploadFile"
	MethodDownloadFile   = "DownloadFile"
	MethodRemoveFile     = "RemoveFile"
	MethodGetFileList    = "GetFileList"

	MethodLoadModels    = "LoadModels"
	MethodConvertModel  = "ConvertModel"
	MethodUploadModel   = "UploadModel"
	MethodRemoveModel   = "RemoveModel"
	MethodValidateModel = "ValidateModel"

	MethodGetMCPAgents       = "GetMCPAgents"
	MethodGetActiveMCPAgents = "GetActiveMCPAgents"
	MethodAddMCPAgent        = "AddMCPAgent"
	MethodEditMCPAgent       = "EditMCPAgent"
	MethodRemoveMCPAgent     = "RemoveMCPAgent"
	MethodStartMCPAgent      = "StartMCPAgent"
	MethodStopMCPAgent       = "StopMCPAgent"

	MethodGetMCPServers       = "GetMCPServers"
	MethodGetActiveMCPServers = "GetActiveMCPServers"
	MethodAddMCPServer        = "AddMCPServer"
	MethodEditMCPServer       = "EditMCPServer"
	MethodRemoveMCPServer     = "RemoveMCPServer"
	MethodStartMCPServer      = "StartMCPServer"
	MethodStopMCPServer       = "StopMCPServer"
	MethodGetMCPServerTools   = "GetMCPServerTools"
)

// FullMethod returns the gRPC path for a backend method, e.g. "/super_builder.SuperBuilder/Chat".
func FullMethod(method string) string {
	return "/" + Service + "/" + method
}

// Conn is a live session with the backend.
//
// Implementations are not safe for concurrent use; callers serialize access
// through session.Manager.
type Conn interface {
	// Invoke performs a unary call, decoding the reply into resp (which may be nil).
	Invoke(ctx context.Context, method string, req, resp any) error
	// Stream performs a server-streaming call. recv is called once per message with
	// a decode function for that message; returning an error from recv aborts the stream.
	Stream(ctx context.Context, method string, req any, recv func(decode func(any) error) error) error
	// Close releases the transport.
	Close() error
}

// Dialer opens backend connections.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, addr string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, addr string) (Conn, error) { return f(ctx, addr) }
