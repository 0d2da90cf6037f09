package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List your notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, err := newAPIClient().Notifications(cmd.Context(), unread)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(notes)
			}
			printNotifications(notes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "only show unread notifications")
	cmd.AddCommand(newNotificationReadCmd())

	return cmd
}

func newNotificationReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>...",
		Short: "Mark notifications read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			for _, id := range args {
				if err := c.MarkRead(cmd.Context(), id); err != nil {
					return fmt.Errorf("marking %s read: %w", id, err)
				}
			}
			if !isJSON() {
				fmt.Printf("Marked %d notification(s) read.\n", len(args))
			}
			return nil
		},
	}
}
