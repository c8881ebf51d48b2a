package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shopmigrate/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}

			issues := config.Validate(cfg)
			for _, issue := range issues {
				fmt.Fprintf(os.Stderr, "%s: %s: %s\n", issue.Severity, issue.Path, issue.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Println("configuration is valid")
			return nil
		},
	}
}
