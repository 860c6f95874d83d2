package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/munzgen/munzgen-agent/internal/config"
	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/logging"
)

// oneShotClient builds a generation client from the environment. One-shot
// commands have no front end to pick a key, so a missing key is an error.
func oneShotClient() (*genai.HTTPClient, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.GenAIAPIKey() == "" {
		return nil, fmt.Errorf("%w: set %s or %s", genai.ErrNoAPIKey, config.EnvGenAIAPIKey, config.EnvHostAPIKey)
	}
	logger := logging.NewLoggerTo(os.Stderr, cfg.LogLevel())
	return genai.NewHTTPClient(cfg.GenAIBaseURL(), genai.NewKeyRing(cfg.GenAIAPIKey()), pollOptions(cfg), logger), nil
}

func newScriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "script <idea>",
		Short: "Write a short screenplay scene for a story idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idea := strings.TrimSpace(strings.Join(args, " "))
			if idea == "" {
				return fmt.Errorf("story concept is required")
			}
			client, err := oneShotClient()
			if err != nil {
				return err
			}
			text, err := client.GenerateScript(cmd.Context(), idea)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func newImageCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate a character image and write it to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := oneShotClient()
			if err != nil {
				return err
			}
			img, err := client.GenerateImage(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, img.Data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d bytes)\n", output, img.MimeType, len(img.Data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "munzgen-image.png", "file to write the image to")
	return cmd
}

func newRouteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "route <request>",
		Short: "Show how the copilot reads a free-form request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := oneShotClient()
			if err != nil {
				return err
			}
			command := client.RouteCommand(cmd.Context(), strings.Join(args, " "))
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(command)
		},
	}
}
