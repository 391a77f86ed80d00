package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nvail/realmsync/internal/bridge"
	"github.com/nvail/realmsync/internal/client"
	"github.com/nvail/realmsync/internal/combat"
	"github.com/nvail/realmsync/internal/config"
	"github.com/nvail/realmsync/internal/connection"
	"github.com/nvail/realmsync/internal/protocol"
	"github.com/nvail/realmsync/internal/pubsub"
	"github.com/nvail/realmsync/internal/session"
	"github.com/nvail/realmsync/internal/transcript"
	"github.com/nvail/realmsync/internal/transport"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	playSession    string
	playCredential string
	playDemo       bool
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Connect to a game server and join a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			if !playDemo {
				return err
			}
			// Demo mode never dials out, so a placeholder URL is fine.
			cfg = &config.Config{
				ServerURL:            "ws://demo.invalid",
				JoinTimeout:          5 * time.Second,
				MaxReconnectAttempts: 5,
			}
		}

		var ch transport.EventChannel
		var fake *transport.Fake
		if playDemo {
			fake = transport.NewFake()
			fake.AutoAck = func(event string, payload json.RawMessage) any {
				return map[string]bool{"success": true}
			}
			ch = fake
		} else {
			ch = transport.NewSocket(cfg.ServerURL)
		}

		c := client.New(cfg, ch)
		defer c.Close()

		subscribeOutput(cmd.Context(), c, cfg)

		connected := make(chan connection.Status, 8)
		unsubscribe := c.Conn.OnStatusChange(func(s connection.Status) {
			connected <- s
		})
		defer unsubscribe()

		c.Conn.Connect(playCredential)
		if err := awaitConnected(connected); err != nil {
			return err
		}

		result := c.Session.Join(cmd.Context(), playSession)
		if result != session.JoinAccepted {
			return fmt.Errorf("join %s: %s", playSession, result)
		}
		fmt.Printf("Joined session %s\n", playSession)

		if playDemo {
			runDemo(fake)
			return nil
		}

		// Forward stdin lines to the session until EOF.
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			if err := c.SendMessage(text); err != nil {
				slog.Error("Failed to send message", "error", err)
			}
		}
		return scanner.Err()
	},
}

func subscribeOutput(ctx context.Context, c *client.Client, cfg *config.Config) {
	var scribe *transcript.Writer
	if cfg.TranscriptPath != "" {
		scribe = transcript.New(afero.NewOsFs(), cfg.TranscriptPath)
	}

	_ = pubsub.Subscribe(ctx, c.Bus, bridge.TopicNarrative,
		func(ctx context.Context, n protocol.Narrative) error {
			if n.Speaker != "" {
				fmt.Printf("%s: %s\n", n.Speaker, n.Text)
			} else {
				fmt.Println(n.Text)
			}
			if scribe != nil {
				return scribe.Append(n)
			}
			return nil
		})

	_ = pubsub.Subscribe(ctx, c.Bus, bridge.TopicError,
		func(ctx context.Context, e protocol.ErrorEvent) error {
			fmt.Printf("! server error: %s\n", e.Message)
			return nil
		})

	c.Combat.OnCombatStart = func(s combat.State) {
		fmt.Printf("-- combat started: round %d, %d enemies --\n", s.Round, len(s.Enemies))
	}
	c.Combat.OnCombatEnd = func(r combat.Result) {
		fmt.Printf("-- combat over: %s (+%d xp, +%d gold) --\n",
			r.Outcome, r.ExperienceGained, r.GoldGained)
	}
}

func awaitConnected(statuses <-chan connection.Status) error {
	timeout := time.After(30 * time.Second)
	for {
		select {
		case s := <-statuses:
			switch s {
			case connection.StatusConnected:
				return nil
			case connection.StatusError:
				return fmt.Errorf("connection failed")
			}
		case <-timeout:
			return fmt.Errorf("timed out waiting for connection")
		}
	}
}

// runDemo replays a short scripted encounter through the fake channel.
func runDemo(fake *transport.Fake) {
	fake.Deliver(protocol.ChannelNarrative, protocol.Narrative{
		Kind: protocol.NarrationLine,
		Text: "A dire wolf lunges from the undergrowth!",
	})
	fake.Deliver(protocol.ChannelGameEvent, protocol.Envelope{
		Type:      "combat:start",
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(map[string]any{"combatState": combat.State{
			CombatID:     "demo-1",
			Round:        1,
			Phase:        combat.PhasePlayerTurn,
			IsPlayerTurn: true,
			Player:       combat.Combatant{ID: "hero", Name: "Hero", CurrentHP: 30, MaxHP: 30},
			Enemies:      []combat.Combatant{{ID: "wolf", Name: "Dire Wolf", CurrentHP: 12, MaxHP: 12}},
		}}),
	})
	fake.Deliver(protocol.ChannelGameEvent, protocol.Envelope{
		Type:      "combat:end",
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(map[string]any{"result": combat.Result{
			Outcome:          combat.OutcomeVictory,
			Rounds:           1,
			ExperienceGained: 25,
			GoldGained:       5,
		}}),
	})

	// Give the local bus a moment to fan the events out.
	time.Sleep(200 * time.Millisecond)
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func init() {
	playCmd.Flags().StringVar(&playSession, "session", "", "session identifier to join")
	playCmd.Flags().StringVar(&playCredential, "credential", "", "bearer credential for the connection")
	playCmd.Flags().BoolVar(&playDemo, "demo", false, "run against an in-memory fake server")
	playCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(playCmd)
}
