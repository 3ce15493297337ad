package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podtenuki/internal/config"
	"podtenuki/internal/services"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List Auphonic presets available to the configured account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireStages(config.Stages{Enhancement: true}); err != nil {
				return services.Wrap(services.ErrConfiguration, "cli", "credentials", "missing settings", err)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			presets, err := ctx.newEnhancer(cfg, logger).ListPresets(ctx.runContext(cmd.Context()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(presets) == 0 {
				fmt.Fprintln(out, "No presets found")
				return nil
			}
			rows := make([][]string, 0, len(presets))
			for _, preset := range presets {
				marker := ""
				if preset.UUID == cfg.Enhancement.PresetUUID {
					marker = "default"
				}
				rows = append(rows, []string{preset.Name, preset.UUID, marker})
			}
			fmt.Fprintln(out, renderTable([]string{"Name", "UUID", ""}, rows, nil))
			return nil
		},
	}
}
