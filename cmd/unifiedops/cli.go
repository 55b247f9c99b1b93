package main

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/api"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/automation"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/ops"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/web"
)

// maxStdin bounds message text read from stdin.
const maxStdin = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, st *store.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "unifiedops",
		Usage:   "Workspace store for a small business operations dashboard",
		Version: Version,
		Commands: []*cli.Command{
			onboardCmd(st),
			workspaceCmd(st),
			roleCmd(st),
			dashboardCmd(st),
			servicesCmd(),
			slotsCmd(st),
			contactCmd(st),
			bookCmd(st),
			inboxCmd(st),
			conversationCmd(st),
			replyCmd(st),
			bookingsCmd(st),
			bookingStatusCmd(st),
			formsCmd(st),
			completeFormCmd(st),
			inventoryCmd(st),
			adjustCmd(st),
			addItemCmd(st),
			exportCmd(st, cfg),
			importCmd(st, cfg),
			remindCmd(db, st, cfg),
			historyCmd(db),
			serveCmd(db, st, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Workspace

func onboardCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "onboard",
		Usage: "Finish setup and activate the workspace",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Business name"},
			&cli.StringFlag{Name: "timezone", Aliases: []string{"tz"}, Value: ops.DefaultTimezone, Usage: "IANA timezone"},
			&cli.BoolFlag{Name: "email", Usage: "Enable the email channel"},
			&cli.BoolFlag{Name: "sms", Usage: "Enable the SMS channel"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Onboard(c.Context, st, ops.OnboardInput{
				Name:     c.String("name"),
				Timezone: c.String("timezone"),
				Email:    c.Bool("email"),
				SMS:      c.Bool("sms"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// workspaceCmd shows the profile, or updates it when any field flag is set.
func workspaceCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "workspace",
		Usage: "Show or update the workspace profile",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New business name"},
			&cli.StringFlag{Name: "timezone", Aliases: []string{"tz"}, Usage: "New IANA timezone"},
			&cli.BoolFlag{Name: "email", Usage: "Email channel on/off"},
			&cli.BoolFlag{Name: "sms", Usage: "SMS channel on/off"},
			&cli.IntFlag{Name: "setup-step", Usage: "Onboarding step (0-8)"},
		},
		Action: func(c *cli.Context) error {
			var input ops.UpdateWorkspaceInput
			if c.IsSet("name") {
				name := c.String("name")
				input.Name = &name
			}
			if c.IsSet("timezone") {
				tz := c.String("timezone")
				input.Timezone = &tz
			}
			if c.IsSet("email") {
				v := c.Bool("email")
				input.Email = &v
			}
			if c.IsSet("sms") {
				v := c.Bool("sms")
				input.SMS = &v
			}
			if c.IsSet("setup-step") {
				step := c.Int("setup-step")
				input.SetupStep = &step
			}

			if input == (ops.UpdateWorkspaceInput{}) {
				output, err := ops.GetWorkspace(c.Context, st)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			output, err := ops.UpdateWorkspace(c.Context, st, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func roleCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "role",
		Usage:     "Set the current role (owner|staff), or toggle it with no argument",
		ArgsUsage: "[role]",
		Action: func(c *cli.Context) error {
			input := ops.SetRoleInput{Role: c.Args().First()}
			if c.NArg() == 0 {
				input.Toggle = true
			}
			output, err := ops.SetRole(c.Context, st, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func dashboardCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Today's bookings, unread messages, pending forms and low stock",
		Action: func(c *cli.Context) error {
			output, err := ops.Dashboard(c.Context, st)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Public flows

func servicesCmd() *cli.Command {
	return &cli.Command{
		Name:  "services",
		Usage: "List the bookable services",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{"services": ops.Services()})
		},
	}
}

func slotsCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "slots",
		Usage: "List the bookable time slots",
		Action: func(c *cli.Context) error {
			output, err := ops.AvailableSlots(c.Context, st)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func contactCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "contact",
		Usage: "Submit the public contact form (message from --message or stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Contact name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Contact email"},
			&cli.StringFlag{Name: "phone", Usage: "Contact phone"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Message text"},
		},
		Action: func(c *cli.Context) error {
			message, err := textArg(c, "message")
			if err != nil {
				return outputError(err)
			}
			output, err := ops.SubmitContact(c.Context, st, ops.SubmitContactInput{
				Name:    c.String("name"),
				Email:   c.String("email"),
				Phone:   c.String("phone"),
				Message: message,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func bookCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "Book a service slot through the public booking flow",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "service", Aliases: []string{"s"}, Usage: "Service id (see `services`)"},
			&cli.StringFlag{Name: "slot", Usage: "Slot start as RFC 3339 (see `slots`)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Contact name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Contact email"},
			&cli.StringFlag{Name: "notes", Usage: "Booking notes"},
		},
		Action: func(c *cli.Context) error {
			date, err := time.Parse(time.RFC3339, c.String("slot"))
			if err != nil {
				return outputError(errors.NewInvalidRequest("slot must be an RFC 3339 timestamp"))
			}
			output, err := ops.SubmitBooking(c.Context, st, ops.SubmitBookingInput{
				ServiceID: c.String("service"),
				Date:      date,
				Name:      c.String("name"),
				Email:     c.String("email"),
				Notes:     c.String("notes"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Inbox

func inboxCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "inbox",
		Usage: "List conversations, most recent first",
		Action: func(c *cli.Context) error {
			output, err := ops.Inbox(c.Context, st)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func conversationCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "conversation",
		Usage:     "Show one contact's messages",
		ArgsUsage: "<contact-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mark-read", Usage: "Mark inbound messages read"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Conversation(c.Context, st, ops.ConversationInput{
				ContactID: c.Args().First(),
				MarkRead:  c.Bool("mark-read"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func replyCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "reply",
		Usage:     "Reply to a contact (content from --content or stdin)",
		ArgsUsage: "<contact-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Reply text"},
			&cli.StringFlag{Name: "channel", Value: "email", Usage: "email|sms"},
		},
		Action: func(c *cli.Context) error {
			content, err := textArg(c, "content")
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Reply(c.Context, st, ops.ReplyInput{
				ContactID: c.Args().First(),
				Content:   content,
				Channel:   c.String("channel"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Bookings and forms

func bookingsCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "bookings",
		Usage: "List bookings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Value: "upcoming", Usage: "upcoming|past|all"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListBookings(c.Context, st, ops.ListBookingsInput{Filter: c.String("filter")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func bookingStatusCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "booking-status",
		Usage:     "Set a booking's status",
		ArgsUsage: "<booking-id> <confirmed|cancelled|completed>",
		Action: func(c *cli.Context) error {
			output, err := ops.SetBookingStatus(c.Context, st, ops.SetBookingStatusInput{
				ID:     c.Args().Get(0),
				Status: c.Args().Get(1),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func formsCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "forms",
		Usage: "List intake forms, most recently sent first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "pending|completed"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListForms(c.Context, st, ops.ListFormsInput{Status: c.String("status")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func completeFormCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "complete-form",
		Usage:     "Mark a form completed",
		ArgsUsage: "<form-id>",
		Action: func(c *cli.Context) error {
			output, err := ops.CompleteForm(c.Context, st, ops.CompleteFormInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Inventory

func inventoryCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "List inventory items",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "low", Usage: "Only items at or below their threshold"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Inventory(c.Context, st, ops.InventoryInput{LowOnly: c.Bool("low")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func adjustCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:      "adjust",
		Usage:     "Adjust an item's quantity by a signed delta",
		ArgsUsage: "<item-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "delta", Aliases: []string{"d"}, Usage: "Signed change, e.g. -2", Required: true},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.AdjustInventory(c.Context, st, ops.AdjustInventoryInput{
				ID:    c.Args().First(),
				Delta: c.Int("delta"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func addItemCmd(st *store.Store) *cli.Command {
	return &cli.Command{
		Name:  "add-item",
		Usage: "Start tracking an inventory item",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Item name"},
			&cli.IntFlag{Name: "quantity", Aliases: []string{"q"}, Usage: "Starting quantity"},
			&cli.IntFlag{Name: "threshold", Usage: "Low-stock threshold"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.AddInventoryItem(c.Context, st, ops.AddInventoryItemInput{
				Name:      c.String("name"),
				Quantity:  c.Int("quantity"),
				Threshold: c.Int("threshold"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Snapshots

func exportCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every slot to a JSONL snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, st, cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func importCmd(st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a JSONL snapshot",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Input file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeMerge), Usage: "merge|replace"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			if path == "" {
				path = c.Args().First()
			}
			output, err := ops.Import(c.Context, st, cfg, ops.ImportInput{
				Path: path,
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Automation

func remindCmd(db *sql.DB, st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Send due intake form reminders now",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "lead-hours", Value: cfg.ReminderLeadHours, Usage: "Remind bookings starting within this many hours"},
		},
		Action: func(c *cli.Context) error {
			hours := c.Int("lead-hours")
			if hours < 0 {
				return outputError(errors.NewInvalidRequest("lead-hours must not be negative"))
			}
			run, output, err := automation.NewRunner(db, st).FormReminders(c.Context, time.Duration(hours)*time.Hour)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"run_id":   run.ID,
				"reminded": output.Reminded,
				"skipped":  output.Skipped,
			})
		},
	}
}

func historyCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded automation runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "job", Usage: "Only runs of this job"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum runs"},
		},
		Action: func(c *cli.Context) error {
			if c.Int("limit") < 0 {
				return outputError(errors.NewInvalidRequest("limit must not be negative"))
			}
			runs, err := automation.History(db, c.String("job"), c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"runs": runs})
		},
	}
}

// serveCmd runs the web UI with the JSON API mounted and the reminder scheduler.
func serveCmd(db *sql.DB, st *store.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard, public pages and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Port (default from config)"},
		},
		Action: func(c *cli.Context) error {
			serveCfg := *cfg
			if c.IsSet("bind") {
				serveCfg.HTTPBind = c.String("bind")
			}
			if c.IsSet("port") {
				serveCfg.HTTPPort = c.Int("port")
			}

			sched, err := automation.New(db, st, &serveCfg)
			if err != nil {
				return outputError(err)
			}

			gin.SetMode(gin.ReleaseMode)
			router := api.NewRouter(db, st, &serveCfg)
			srv := web.NewServer(st, &serveCfg, Version, router)

			release, err := holdServerLease(db, srv.Addr)
			if err != nil {
				return outputError(err)
			}
			defer release()

			sched.Start()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				sched.Stop(ctx)
			}()

			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var opsErr *errors.OpsError
	if stderrors.As(err, &opsErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", opsErr.Code, opsErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// textArg returns the named flag, or piped stdin when the flag is unset.
func textArg(c *cli.Context, flag string) (string, error) {
	if c.IsSet(flag) || !stdinHasData() {
		return c.String(flag), nil
	}
	text, err := readStdin(maxStdin)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads stdin up to limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
