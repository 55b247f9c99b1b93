package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"workspace", "booking", "inbox", "form", "inventory", "dashboard", "automation", "snapshot"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"workspace_get": {
		def:     workspaceGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceGet },
	},
	"workspace_onboard": {
		def:     workspaceOnboardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOnboard },
	},
	"workspace_update": {
		def:     workspaceUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceUpdate },
	},
	"workspace_role": {
		def:     workspaceRoleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRole },
	},
	"booking_services": {
		def:     bookingServicesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleServices },
	},
	"booking_slots": {
		def:     bookingSlotsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSlots },
	},
	"booking_create": {
		def:     bookingCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookingCreate },
	},
	"booking_list": {
		def:     bookingListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookingList },
	},
	"booking_status": {
		def:     bookingStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBookingStatus },
	},
	"inbox_list": {
		def:     inboxListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInbox },
	},
	"inbox_conversation": {
		def:     inboxConversationToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConversation },
	},
	"inbox_reply": {
		def:     inboxReplyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReply },
	},
	"inbox_contact": {
		def:     inboxContactToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContact },
	},
	"form_list": {
		def:     formListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFormList },
	},
	"form_complete": {
		def:     formCompleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFormComplete },
	},
	"inventory_list": {
		def:     inventoryListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventory },
	},
	"inventory_adjust": {
		def:     inventoryAdjustToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventoryAdjust },
	},
	"inventory_add": {
		def:     inventoryAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInventoryAdd },
	},
	"dashboard_get": {
		def:     dashboardGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDashboard },
	},
	"automation_remind": {
		def:     automationRemindToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemind },
	},
	"automation_history": {
		def:     automationHistoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"snapshot_export": {
		def:     snapshotExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"snapshot_import": {
		def:     snapshotImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "booking_list" → "booking").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the workspace tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(database *sql.DB, st *store.Store, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"unifiedops",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(database, st, cfg)

	// Expand types first, then add individual tools.
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(database *sql.DB, st *store.Store, cfg *config.Config, version string) error {
	s := NewServer(database, st, cfg, version)
	return server.ServeStdio(s)
}
