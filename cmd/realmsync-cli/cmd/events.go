package cmd

import (
	"fmt"

	"github.com/nvail/realmsync/internal/bridge"
	"github.com/nvail/realmsync/internal/protocol"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the server event channels and local bus topics",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Inbound server channels:")
		for _, ch := range []string{
			protocol.ChannelNarrative,
			protocol.ChannelCharacterUpdate,
			protocol.ChannelError,
			protocol.ChannelPlayerJoined,
			protocol.ChannelPlayerLeft,
			protocol.ChannelGameState,
			protocol.ChannelGameEvent,
			protocol.ChannelPlayerResolution,
		} {
			fmt.Printf("  %s\n", ch)
		}

		fmt.Println("\nOutbound events:")
		for _, ev := range []string{
			protocol.EventJoinGame,
			protocol.EventLeaveGame,
			protocol.EventPlayerAction,
			protocol.EventSendMessage,
			protocol.EventJoinLocation,
			protocol.EventPlayerAct,
		} {
			fmt.Printf("  %s\n", ev)
		}

		fmt.Println("\nLocal bus topics:")
		for _, topic := range []string{
			bridge.TopicNarrative.Name(),
			bridge.TopicCharacterUpdate.Name(),
			bridge.TopicError.Name(),
			bridge.TopicPlayerJoined.Name(),
			bridge.TopicPlayerLeft.Name(),
			bridge.TopicGameState.Name(),
			bridge.TopicGameEvent.Name(),
			bridge.TopicResolution.Name(),
		} {
			fmt.Printf("  %s\n", topic)
		}
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
