// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package catalog

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"assistbridge/cli/internal/bridge/model"
	"assistbridge/cli/internal/errors"
)

// Entry is one catalog listing, localized to English where the catalog offers it.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ChineseName string   `json:"chineseName,omitempty"`
	Description string   `json:"description,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	LogoURL     string   `json:"logoUrl,omitempty"`
	ViewCount   int64    `json:"viewCount"`
	Categories  []string `json:"categories,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Page is a parsed list response.
type Page struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
}

// TotalPages returns how many pages of pageSize the catalog holds.
func (p Page) TotalPages(pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (p.Total + int64(pageSize) - 1) / int64(pageSize)
}

func stringList(r gjson.Result) []string {
	var out []string
	r.ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
		return true
	})
	return out
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// ParseList extracts entries from a list response (data.mcp_server_list, data.total_count).
func ParseList(raw string) (Page, error) {
	if !gjson.Valid(raw) {
		return Page{}, errors.New(errors.Protocol, "catalog list response is not valid JSON")
	}
	data := gjson.Get(raw, "data")
	var page Page
	data.Get("mcp_server_list").ForEach(func(_, s gjson.Result) bool {
		page.Entries = append(page.Entries, Entry{
			ID:          s.Get("id").String(),
			Name:        firstString(s, "locales.en.name", "name"),
			ChineseName: firstString(s, "chinese_name", "locales.zh.name"),
			Description: firstString(s, "locales.en.description", "description"),
			Publisher:   s.Get("publisher").String(),
			LogoURL:     s.Get("logo_url").String(),
			ViewCount:   s.Get("view_count").Int(),
			Categories:  stringList(s.Get("categories")),
			Tags:        stringList(s.Get("tags")),
		})
		return true
	})
	page.Total = data.Get("total_count").Int()
	return page, nil
}

// ParseServers extracts the runnable server configurations from a by-id response
// (data.server_config[0].mcpServers, keyed by server name). Servers are named
// "<name>_<id>" so several catalog items can ship a server with the same name.
// The result is sorted by name.
func ParseServers(id, raw string) ([]model.MCPServer, error) {
	if !gjson.Valid(raw) {
		return nil, errors.New(errors.Protocol, "catalog server response is not valid JSON")
	}
	servers := gjson.Get(raw, "data.server_config.0.mcpServers")
	if !servers.IsObject() {
		return nil, nil
	}
	var out []model.MCPServer
	servers.ForEach(func(name, cfg gjson.Result) bool {
		out = append(out, model.MCPServer{
			ServerName: InstalledName(name.String(), id),
			Command:    cfg.Get("command").String(),
			Args:       strings.Join(stringList(cfg.Get("args")), " "),
			URL:        firstString(cfg, "url", "baseUrl"),
			Env:        envString(cfg.Get("env")),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ServerName < out[j].ServerName })
	return out, nil
}

// InstalledName is the local server name used for a catalog server.
func InstalledName(serverName, id string) string {
	return serverName + "_" + id
}

// envString flattens an env object into sorted KEY=VALUE lines.
func envString(r gjson.Result) string {
	if !r.IsObject() {
		return r.String()
	}
	var pairs []string
	r.ForEach(func(k, v gjson.Result) bool {
		pairs = append(pairs, k.String()+"="+v.String())
		return true
	})
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}
