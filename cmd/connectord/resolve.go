package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fedichat/livechat-connector/internal/app"
	"github.com/fedichat/livechat-connector/internal/caps"
	"github.com/fedichat/livechat-connector/internal/config"
	"github.com/fedichat/livechat-connector/internal/identity"
	"github.com/fedichat/livechat-connector/internal/log"
	"github.com/fedichat/livechat-connector/internal/resolve"
	"github.com/fedichat/livechat-connector/internal/widget"
)

// resolveCmd runs one resolution offline and prints the widget parameters.
// Debugging tool: no server, no metadata cache, no widget boot.
func resolveCmd() *cobra.Command {
	var (
		room         string
		mode         string
		metadataPath string
		token        string
		viewerMode   bool
		readonly     bool
		advanced     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a connection configuration without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap := log.New("warn", true)

			cfg, _, err := config.Load(bootstrap, configPath)
			if err != nil {
				return err
			}

			embeddingMode, err := resolve.ParseEmbeddingMode(mode)
			if err != nil {
				return err
			}

			loc := resolve.LocalRoom(room)
			if metadataPath != "" {
				raw, err := os.ReadFile(metadataPath)
				if err != nil {
					return fmt.Errorf("read metadata: %w", err)
				}
				meta, err := caps.ParseRoomMetadata(raw)
				if err != nil {
					return fmt.Errorf("parse metadata: %w", err)
				}
				if meta.JID == "" {
					meta.JID = room
				}
				loc = resolve.RemoteRoom(meta)
			}

			logger := log.New(cfg.LogLevel, cfg.LogPretty)

			id := identity.None()
			if token != "" {
				jwtConfig := &identity.JWTConfig{
					Secret:   []byte(cfg.Auth.JWTSecret),
					Issuer:   cfg.Auth.JWTIssuer,
					Audience: cfg.Auth.JWTAudience,
				}
				provider := identity.NewProvider(
					cfg.Auth.URL, jwtConfig, cfg.Auth.OIDCProviders,
					cfg.Auth.RequestTimeout, nil, logger,
				)
				id = provider.Resolve(context.Background(), token, true)
			}

			resolver := resolve.New(app.LocalServer(cfg.XMPP), logger)
			connCfg := resolver.Resolve(embeddingMode, loc, id, resolve.UserPrefs{
				AutoViewerMode:   viewerMode,
				ForceReadonly:    readonly,
				AdvancedControls: advanced,
			})

			adapter := widget.NewAdapter(nil, logger)
			params, err := adapter.Apply(context.Background(), embeddingMode, connCfg)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(struct {
				Branch string            `json:"branch"`
				Params widget.InitParams `json:"params"`
			}{string(connCfg.Branch), params}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "room name or full room address")
	cmd.Flags().StringVar(&mode, "mode", string(resolve.ModeChatOnly), "embedding mode")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "path to a remote room metadata record (omit for local rooms)")
	cmd.Flags().StringVar(&token, "token", "", "host bearer token")
	cmd.Flags().BoolVar(&viewerMode, "auto-viewer-mode", false, "enable viewer mode for anonymous visitors")
	cmd.Flags().BoolVar(&readonly, "force-readonly", false, "force readonly participation")
	cmd.Flags().BoolVar(&advanced, "advanced-controls", false, "enable advanced widget controls")
	_ = cmd.MarkFlagRequired("room")

	return cmd
}
