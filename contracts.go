package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"weather-contract-tester/internal/config"
	"weather-contract-tester/internal/parser"
	"weather-contract-tester/internal/schema"
)

func newContractsCmd() *cobra.Command {
	var configPath, format string
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Check the response contracts and print them as an OpenAPI document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printContracts(cmd.Context(), configPath, format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file supplying the server URL")
	cmd.Flags().StringVar(&format, "format", "yaml", "output format (yaml|json)")
	return cmd
}

func printContracts(ctx context.Context, configPath, format string, out io.Writer) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	registry := schema.NewRegistry()
	if err := registry.Check(); err != nil {
		return fmt.Errorf("response contracts are inconsistent: %w", err)
	}

	data, err := parser.NewOpenAPIExporter(registry, cfg.Environment.BaseURL).Render(ctx, format)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
