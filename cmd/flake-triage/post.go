package main

import (
	"github.com/spf13/cobra"
)

var (
	postChannel string
	postText    string
)

var postMessageCmd = &cobra.Command{
	Use:   "post-message",
	Short: "Post a message to a chat channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.poster.PostMessage(cmd.Context(), postChannel, postText)
	},
}

func init() {
	postMessageCmd.Flags().StringVar(&postChannel, "channel", "", "Channel to post to")
	postMessageCmd.Flags().StringVar(&postText, "message", "", "Message text")
	_ = postMessageCmd.MarkFlagRequired("channel")
	_ = postMessageCmd.MarkFlagRequired("message")
}
