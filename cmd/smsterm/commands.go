package main

import (
	"fmt"

	"github.com/sms-terminal/smsterm/internal/tui"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(messagesCmd, composeCmd, phonebookCmd)
}

var messagesCmd = &cobra.Command{
	Use:   "messages <phone-number>",
	Short: "Start on the conversation with the given contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("phone number required")
		}
		return runTUI(tui.ViewMessages, args[0])
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose <phone-number>",
	Short: "Start composing a message to the given contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("phone number required")
		}
		return runTUI(tui.ViewCompose, args[0])
	},
}

var phonebookCmd = &cobra.Command{
	Use:   "phonebook",
	Short: "Start on the phonebook view",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(tui.ViewPhonebook, "")
	},
}
