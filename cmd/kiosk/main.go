package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rollcall-app/rollcall/internal/attendance"
	"github.com/rollcall-app/rollcall/internal/client"
	"github.com/rollcall-app/rollcall/internal/export"
	"github.com/rollcall-app/rollcall/internal/logger"
	"github.com/rollcall-app/rollcall/internal/sync"
)

var (
	serverURL  string
	eventCode  string
	roleName   string
	timeout    time.Duration
	importFile string
)

var rootCmd = &cobra.Command{
	Use:   "kiosk",
	Short: "Terminal check-in station for a rollcall event",
	Long: `Kiosk connects to a rollcall server, joins an event room and checks
participants in from stdin. Every check-in is broadcast to the other
stations in the room, and their check-ins appear here.

Run as host on the station that owns the event, and as viewer everywhere
else; viewers bootstrap entirely from the room.`,
	RunE: run,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new event from an exported JSON file",
	Long: `Register uploads an exported event file and prints the room code the
server assigned. The file is the same shape the export endpoint produces,
so a downloaded event re-registers unchanged.`,
	RunE: runRegister,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "rollcall server base URL")
	rootCmd.Flags().StringVar(&eventCode, "event", "", "event room code (required)")
	rootCmd.Flags().StringVar(&roleName, "role", "viewer", "host or viewer")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "initial load timeout")
	rootCmd.MarkFlagRequired("event")

	registerCmd.Flags().StringVar(&importFile, "file", "", "exported event JSON file (required)")
	registerCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	f, err := os.Open(importFile)
	if err != nil {
		return fmt.Errorf("os.Open -> %w", err)
	}
	defer f.Close()

	doc, err := export.ParseJSON(f)
	if err != nil {
		return fmt.Errorf("export.ParseJSON -> %w", err)
	}

	created, err := client.New(serverURL).RegisterEvent(cmd.Context(), doc)
	if err != nil {
		return fmt.Errorf("client.RegisterEvent -> %w", err)
	}

	fmt.Printf("Registered %q with room code %v\n", created.Name, created.Code)

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	var role attendance.Role
	switch roleName {
	case "host":
		role = attendance.RoleHost
	case "viewer":
		role = attendance.RoleViewer
	default:
		return fmt.Errorf("unknown role %q, want host or viewer", roleName)
	}

	if err := logger.Init("production"); err != nil {
		return fmt.Errorf("logger.Init -> %w", err)
	}

	ctx := cmd.Context()

	channel, err := sync.Dial(ctx, syncURL(serverURL))
	if err != nil {
		return fmt.Errorf("sync.Dial -> %w", err)
	}
	defer channel.Close()

	store := client.New(serverURL)

	ctrl := attendance.NewController(eventCode, role, store, channel,
		attendance.WithLoadTimeout(timeout))
	if err := ctrl.Load(ctx); err != nil {
		return fmt.Errorf("ctrl.Load -> %w", err)
	}

	fmt.Printf("Checked in to %q (%v participants, %v same-day)\n",
		ctrl.EventName(), len(ctrl.Attendees()), len(ctrl.SameDay()))
	fmt.Println(`Type a participant id to check in, ":status" for a summary,`)
	fmt.Println(`":resync" to refresh from the room, or ":quit" to leave.`)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == ":quit":
			return nil
		case line == ":status":
			printStatus(ctrl)
			continue
		case line == ":resync":
			if err := ctrl.Resync(); err != nil {
				fmt.Printf("resync failed: %v\n", err)
			} else {
				fmt.Println("resync requested")
			}
			continue
		}

		if err := checkIn(ctrl, scanner, line); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func checkIn(ctrl *attendance.Controller, scanner *bufio.Scanner, id string) error {
	outcome, err := ctrl.RecordAttendance(id)
	if err != nil {
		if errors.Is(err, attendance.ErrUnavailable) {
			return fmt.Errorf("ctrl.RecordAttendance -> %w", err)
		}
		fmt.Printf("check-in failed: %v\n", err)
		return nil
	}

	if outcome == attendance.OutcomeNeedsConfirmation {
		fmt.Printf("%q is not on the roster. Register as same-day? [y/N] ", id)
		if !scanner.Scan() {
			return nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			fmt.Println("skipped")
			return nil
		}

		outcome, err = ctrl.ConfirmSameDay(id)
		if err != nil {
			fmt.Printf("check-in failed: %v\n", err)
			return nil
		}
	}

	fmt.Printf("%v: %v\n", id, outcome)

	return nil
}

func printStatus(ctrl *attendance.Controller) {
	attendees := ctrl.Attendees()
	attended := 0
	for _, entry := range attendees {
		if entry.Attended {
			attended++
		}
	}

	settings := ctrl.Settings()
	fmt.Printf("%q: %v/%v attended, %v same-day\n",
		ctrl.EventName(), attended, len(attendees), len(ctrl.SameDay()))
	fmt.Printf("same-day allowed: %v, auto-register: %v\n",
		settings.AllowSameDay, settings.AutoRegisterSameDay)

	if settings.NoRosterDisplay {
		return
	}
	for i, entry := range attendees {
		mark := " "
		if entry.Attended {
			mark = "x"
		}
		fmt.Printf("  [%v] %3d %v\n", mark, i, entry.ID)
	}
	for _, id := range ctrl.SameDay() {
		fmt.Printf("  [x]  +  %v (same-day)\n", id)
	}
}

// syncURL turns the HTTP base URL into the websocket sync endpoint.
func syncURL(base string) string {
	ws := base
	switch {
	case strings.HasPrefix(base, "https://"):
		ws = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		ws = "ws://" + strings.TrimPrefix(base, "http://")
	}

	return strings.TrimSuffix(ws, "/") + "/api/v1/sync"
}
