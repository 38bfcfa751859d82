// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package commands

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
	"assistbridge/cli/internal/logging"
	"assistbridge/cli/internal/models"
)

// Handler runs one named operation on its JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// InvokeError is the flattened, secret-masked failure returned to UI callers.
type InvokeError struct {
	Command string
	Message string
	unknown bool
}

func (e *InvokeError) Error() string { return e.Message }

// Unknown reports whether the command name was not registered.
func (e *InvokeError) Unknown() bool { return e.unknown }

// Registry maps invoke names to handlers.
type Registry struct {
	handlers    map[string]Handler
	sessionless map[string]bool
	log         zerolog.Logger
}

// NewRegistry registers every backend operation of b and every local operation of l.
func NewRegistry(b *Bridge, l *Local, log zerolog.Logger) *Registry {
	r := &Registry{handlers: make(map[string]Handler), sessionless: make(map[string]bool), log: log}
	r.registerBackend(b)
	r.registerLocal(b, l)
	return r
}

// Register adds or replaces a handler.
func (r *Registry) Register(name string, h Handler) { r.handlers[name] = h }

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// NeedsSession reports whether name talks to the backend. Local commands run
// without a connection.
func (r *Registry) NeedsSession(name string) bool {
	return r.Has(name) && !r.sessionless[name]
}

// local registers a command that never touches the backend session.
func (r *Registry) local(name string, h Handler) {
	r.Register(name, h)
	r.sessionless[name] = true
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs command name with args and returns its JSON result. Any failure is
// returned as *InvokeError carrying one masked, human-readable message.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, &InvokeError{Command: name, Message: "unknown command: " + name, unknown: true}
	}

	start := time.Now()
	v, err := h(ctx, args)
	if err != nil {
		r.log.Warn().
			Str("command", name).
			Str("kind", string(errors.KindOf(err))).
			Str("error", logging.Mask(err.Error())).
			Dur("took", time.Since(start)).
			Msg("command failed")
		return nil, &InvokeError{Command: name, Message: logging.PresentError("", err)}
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil, &InvokeError{Command: name, Message: "encode result: " + err.Error()}
	}
	r.log.Debug().Str("command", name).Dur("took", time.Since(start)).Msg("command done")
	return out, nil
}

// handle decodes args into A before calling fn. Missing or null args leave A zero.
func handle[A, R any](fn func(ctx context.Context, args A) (R, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, errors.Wrap(errors.InvalidInput, "decode arguments", err)
			}
		}
		return fn(ctx, args)
	}
}

// noArgs adapts an operation without arguments.
func noArgs[R any](fn func(ctx context.Context) (R, error)) Handler {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

type nameArgs struct {
	Name string `json:"name"`
}

type vmArgs struct {
	VM string `json:"vm"`
}

type pathArgs struct {
	Path string `json:"path"`
}

type modelsArgs struct {
	Models []string `json:"models"`
}

type downloadArgs struct {
	FileName    string `json:"fileName"`
	Destination string `json:"destination"`
}

type missingArgs struct {
	ModelsAbsPath string   `json:"modelsAbsPath"`
	Models        []string `json:"models"`
}

type folderArgs struct {
	FolderPath string `json:"folderPath"`
}

type filenameArgs struct {
	Filename string `json:"filename"`
}

type idArgs struct {
	ID string `json:"id"`
}

func (r *Registry) registerBackend(b *Bridge) {
	r.Register("connect_client", noArgs(b.Connect))
	r.Register("mw_say_hello", handle(func(ctx context.Context, a nameArgs) (string, error) {
		return b.SayHello(ctx, a.Name)
	}))
	r.Register("pyllm_say_hello", handle(func(ctx context.Context, a nameArgs) (string, error) {
		return b.SayHelloPyllm(ctx, a.Name)
	}))
	r.Register("llm_health_check", handle(func(ctx context.Context, a model.HealthRequest) (string, error) {
		return b.HealthCheck(ctx, a.TypeOfCheck)
	}))
	r.Register("get_config", handle(b.GetConfig))
	r.Register("set_user_config_view_model", handle(func(ctx context.Context, a vmArgs) (string, error) {
		return b.SetUserConfigViewModel(ctx, a.VM)
	}))
	r.Register("set_assistant_view_model", handle(func(ctx context.Context, a vmArgs) (string, error) {
		return b.SetAssistantViewModel(ctx, a.VM)
	}))
	r.Register("update_notification", handle(b.UpdateNotification))
	r.Register("set_parameters", handle(b.SetParameters))
	r.Register("set_models", handle(b.SetModels))
	r.Register("update_db_models", handle(func(ctx context.Context, a modelsArgs) (string, error) {
		return b.UpdateDBModels(ctx, a.Models)
	}))
	r.Register("export_user_config", handle(func(ctx context.Context, a pathArgs) (string, error) {
		return b.ExportUserConfig(ctx, a.Path)
	}))
	r.Register("import_user_config", handle(func(ctx context.Context, a pathArgs) (string, error) {
		return b.ImportUserConfig(ctx, a.Path)
	}))
	r.Register("send_feedback", handle(b.SendFeedback))
	r.Register("send_email", handle(b.SendEmail))

	// chat
	r.Register("call_chat", handle(func(ctx context.Context, a model.ChatRequest) (string, error) {
		return b.Chat(ctx, a, nil)
	}))
	r.Register("stop_chat", noArgs(b.StopChat))
	r.Register("get_chat_history", noArgs(b.GetChatHistory))
	r.Register("remove_session", handle(func(ctx context.Context, a model.SessionRequest) (string, error) {
		return b.RemoveSession(ctx, a.SessionID)
	}))
	r.Register("set_session_name", handle(func(ctx context.Context, a model.SessionRequest) (string, error) {
		return b.SetSessionName(ctx, a.SessionID, a.Name)
	}))

	// files
	r.Register("upload_file", handle(func(ctx context.Context, a pathArgs) (UploadResult, error) {
		return b.UploadFile(ctx, a.Path)
	}))
	r.Register("stop_upload_file", handle(func(ctx context.Context, a model.UploadIDRequest) (string, error) {
		return b.StopUploadFile(ctx, a.UploadID)
	}))
	r.Register("download_file", handle(func(ctx context.Context, a downloadArgs) (int64, error) {
		return b.DownloadFile(ctx, a.FileName, a.Destination)
	}))
	r.Register("remove_file", handle(func(ctx context.Context, a model.FileNameRequest) (string, error) {
		return b.RemoveFile(ctx, a.FileName)
	}))
	r.Register("get_file_list", noArgs(b.GetFileList))

	// models
	r.Register("load_models", handle(func(ctx context.Context, a modelsArgs) (string, error) {
		return b.LoadModels(ctx, a.Models)
	}))
	r.Register("convert_model", handle(b.ConvertModel))
	r.Register("upload_model", handle(b.UploadModel))
	r.Register("remove_model", handle(b.RemoveModel))
	r.Register("validate_model", handle(b.ValidateModel))

	// MCP agents
	r.Register("get_mcp_agents", noArgs(b.GetMCPAgents))
	r.Register("get_active_mcp_agents", noArgs(b.GetActiveMCPAgents))
	r.Register("add_mcp_agent", handle(func(ctx context.Context, a model.MCPAgentRequest) (string, error) {
		return b.AddMCPAgent(ctx, a.Agent)
	}))
	r.Register("edit_mcp_agent", handle(func(ctx context.Context, a model.MCPAgentRequest) (string, error) {
		return b.EditMCPAgent(ctx, a.Agent)
	}))
	r.Register("remove_mcp_agent", handle(func(ctx context.Context, a model.MCPAgentNameRequest) (string, error) {
		return b.RemoveMCPAgent(ctx, a.AgentName)
	}))
	r.Register("start_mcp_agent", handle(func(ctx context.Context, a model.MCPAgentNameRequest) (string, error) {
		return b.StartMCPAgent(ctx, a.AgentName)
	}))
	r.Register("stop_mcp_agent", handle(func(ctx context.Context, a model.MCPAgentNameRequest) (string, error) {
		return b.StopMCPAgent(ctx, a.AgentName)
	}))

	// MCP servers
	r.Register("get_mcp_servers", noArgs(b.GetMCPServers))
	r.Register("get_active_mcp_servers", noArgs(b.GetActiveMCPServers))
	r.Register("add_mcp_server", handle(func(ctx context.Context, a model.MCPServerRequest) (string, error) {
		return b.AddMCPServer(ctx, a.Server)
	}))
	r.Register("edit_mcp_server", handle(func(ctx context.Context, a model.MCPServerRequest) (string, error) {
		return b.EditMCPServer(ctx, a.Server)
	}))
	r.Register("remove_mcp_server", handle(func(ctx context.Context, a model.MCPServerNameRequest) (string, error) {
		return b.RemoveMCPServer(ctx, a.ServerName)
	}))
	r.Register("start_mcp_server", handle(func(ctx context.Context, a model.MCPServerNameRequest) (string, error) {
		return b.StartMCPServer(ctx, a.ServerName)
	}))
	r.Register("stop_mcp_server", handle(func(ctx context.Context, a model.MCPServerNameRequest) (string, error) {
		return b.StopMCPServer(ctx, a.ServerName)
	}))
	r.Register("get_mcp_server_tools", handle(func(ctx context.Context, a model.MCPServerNameRequest) (string, error) {
		return b.GetMCPServerTools(ctx, a.ServerName)
	}))
}

func (r *Registry) registerLocal(b *Bridge, l *Local) {
	r.local("get_missing_models", handle(func(_ context.Context, a missingArgs) (models.Result, error) {
		return l.MissingModels(a.ModelsAbsPath, a.Models)
	}))
	r.local("check_openvino_model", handle(func(_ context.Context, a folderArgs) (bool, error) {
		return models.CheckOpenVINO(a.FolderPath), nil
	}))
	r.local("path_exists", handle(func(_ context.Context, a pathArgs) (bool, error) {
		return models.PathExists(a.Path), nil
	}))
	r.local("open_file_and_return_as_base64", handle(func(_ context.Context, a filenameArgs) (string, error) {
		return l.Thumbnail(a.Filename)
	}))
	r.local("fetch_modelscope_mcp_servers", handle(l.FetchCatalog))
	r.local("fetch_modelscope_mcp_by_id", handle(func(ctx context.Context, a idArgs) (string, error) {
		return l.FetchCatalogByID(ctx, a.ID)
	}))
	r.Register("install_catalog_server", handle(func(ctx context.Context, a idArgs) (InstallResult, error) {
		return b.InstallCatalogServer(ctx, l, a.ID)
	}))
}
