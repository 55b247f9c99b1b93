package mcp

import "github.com/mark3labs/mcp-go/mcp"

var workspaceGetToolDef = mcp.NewTool("workspace_get",
	mcp.WithDescription("Get the workspace profile, activation state, the current viewing role and its navigation."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var workspaceOnboardToolDef = mcp.NewTool("workspace_onboard",
	mcp.WithDescription("Finish onboarding: set the business name, timezone and channels, then activate the workspace. Back-office tools refuse to write until this has run."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Business name")),
	mcp.WithString("timezone", mcp.Description("IANA timezone, e.g. America/New_York (default: UTC)")),
	mcp.WithBoolean("email", mcp.Description("Enable the email channel")),
	mcp.WithBoolean("sms", mcp.Description("Enable the SMS channel")),
)

var workspaceUpdateToolDef = mcp.NewTool("workspace_update",
	mcp.WithDescription("Update workspace settings. Only the given fields change."),
	mcp.WithString("name", mcp.Description("Business name")),
	mcp.WithString("timezone", mcp.Description("IANA timezone")),
	mcp.WithBoolean("email", mcp.Description("Enable the email channel")),
	mcp.WithBoolean("sms", mcp.Description("Enable the SMS channel")),
	mcp.WithNumber("setup_step", mcp.Description("Onboarding wizard step")),
)

var workspaceRoleToolDef = mcp.NewTool("workspace_role",
	mcp.WithDescription("Switch the viewing role between owner and staff. Staff cannot see the staff page."),
	mcp.WithString("role", mcp.Description("Role to switch to"), mcp.Enum("owner", "staff")),
	mcp.WithBoolean("toggle", mcp.Description("Flip the current role; role is ignored when set")),
)

var bookingServicesToolDef = mcp.NewTool("booking_services",
	mcp.WithDescription("List the bookable service catalogue."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var bookingSlotsToolDef = mcp.NewTool("booking_slots",
	mcp.WithDescription("List the open appointment slots for the coming days, in the workspace timezone."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var bookingCreateToolDef = mcp.NewTool("booking_create",
	mcp.WithDescription("Book a service the way the public booking page does. Finds or creates the contact by email, creates the booking and its intake form, and sends a confirmation."),
	mcp.WithString("service_id", mcp.Required(), mcp.Description("Service id from booking_services")),
	mcp.WithString("date", mcp.Required(), mcp.Description("Slot start time (RFC 3339) from booking_slots")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Customer name")),
	mcp.WithString("email", mcp.Required(), mcp.Description("Customer email")),
	mcp.WithString("notes", mcp.Description("Optional notes")),
)

var bookingListToolDef = mcp.NewTool("booking_list",
	mcp.WithDescription("List bookings with the contact name resolved."),
	mcp.WithString("filter", mcp.Description("Which bookings to list (default: upcoming)"), mcp.Enum("upcoming", "past", "all")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var bookingStatusToolDef = mcp.NewTool("booking_status",
	mcp.WithDescription("Set a booking's status."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Booking id")),
	mcp.WithString("status", mcp.Required(), mcp.Enum("confirmed", "cancelled", "completed")),
)

var inboxListToolDef = mcp.NewTool("inbox_list",
	mcp.WithDescription("List conversations, one per contact, newest first, with unread counts."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var inboxConversationToolDef = mcp.NewTool("inbox_conversation",
	mcp.WithDescription("Get the messages exchanged with one contact, oldest first."),
	mcp.WithString("contact_id", mcp.Required(), mcp.Description("Contact id")),
	mcp.WithBoolean("mark_read", mcp.Description("Mark the contact's inbound messages read")),
)

var inboxReplyToolDef = mcp.NewTool("inbox_reply",
	mcp.WithDescription("Send a reply to a contact."),
	mcp.WithString("contact_id", mcp.Required(), mcp.Description("Contact id")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Reply text")),
	mcp.WithString("channel", mcp.Description("Channel (default: email)"), mcp.Enum("email", "sms")),
)

var inboxContactToolDef = mcp.NewTool("inbox_contact",
	mcp.WithDescription("Submit the public contact form. Finds or creates the contact by email and records the inbound message plus an automated welcome reply."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Sender name")),
	mcp.WithString("email", mcp.Required(), mcp.Description("Sender email")),
	mcp.WithString("phone", mcp.Description("Sender phone")),
	mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
)

var formListToolDef = mcp.NewTool("form_list",
	mcp.WithDescription("List intake forms with the contact name resolved."),
	mcp.WithString("status", mcp.Description("Only forms with this status"), mcp.Enum("pending", "completed")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var formCompleteToolDef = mcp.NewTool("form_complete",
	mcp.WithDescription("Mark an intake form completed, along with its booking's form status."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Form id")),
)

var inventoryListToolDef = mcp.NewTool("inventory_list",
	mcp.WithDescription("List inventory items with their low-stock flag."),
	mcp.WithBoolean("low_only", mcp.Description("Only items at or below their threshold")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var inventoryAdjustToolDef = mcp.NewTool("inventory_adjust",
	mcp.WithDescription("Adjust an item's quantity by a signed delta. The quantity never drops below zero."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Inventory item id")),
	mcp.WithNumber("delta", mcp.Required(), mcp.Description("Signed change, e.g. -1 or 10")),
)

var inventoryAddToolDef = mcp.NewTool("inventory_add",
	mcp.WithDescription("Add a new inventory item."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Item name")),
	mcp.WithNumber("quantity", mcp.Description("Starting quantity")),
	mcp.WithNumber("threshold", mcp.Description("Low-stock threshold")),
)

var dashboardGetToolDef = mcp.NewTool("dashboard_get",
	mcp.WithDescription("Get today's bookings, unread messages, pending forms and low-stock alerts."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var automationRemindToolDef = mcp.NewTool("automation_remind",
	mcp.WithDescription("Send intake form reminders for confirmed bookings starting soon. Each booking is reminded once. The run is recorded in the automation history."),
	mcp.WithNumber("lead_hours", mcp.Description("Remind bookings starting within this many hours (default: config reminder_lead_hours, else 24)")),
)

var automationHistoryToolDef = mcp.NewTool("automation_history",
	mcp.WithDescription("List recorded automation runs, newest first."),
	mcp.WithString("job", mcp.Description("Only runs of this job, e.g. form_reminders")),
	mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default: 20)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var snapshotExportToolDef = mcp.NewTool("snapshot_export",
	mcp.WithDescription("Export every workspace slot to a JSONL snapshot file."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file (default: exports/workspace-<timestamp>.jsonl in the data directory)")),
)

var snapshotImportToolDef = mcp.NewTool("snapshot_import",
	mcp.WithDescription("Import a JSONL snapshot. merge adds records with new ids; replace restores every slot in the file and aborts on any bad line."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Snapshot .jsonl file")),
	mcp.WithString("mode", mcp.Description("Import mode (default: merge)"), mcp.Enum("merge", "replace")),
	mcp.WithDestructiveHintAnnotation(true),
)
