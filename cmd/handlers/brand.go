package handlers

import (
	"fmt"
	"os"

	"ghostwriter/internal/core"

	"github.com/spf13/cobra"
)

// NewBrandCmd creates the brand voice command group
func NewBrandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brand",
		Short: "Manage the brand voice applied to every draft",
	}
	cmd.AddCommand(newBrandSetCmd())
	cmd.AddCommand(newBrandShowCmd())
	return cmd
}

func newBrandSetCmd() *cobra.Command {
	var principles, example, exampleFile string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set or clear the brand voice",
		Long: `Set the brand voice. Running it with empty values clears it.

Examples:
  ghostwriter brand set --principles "親しみやすく、専門用語は噛み砕く" --example-file sample.md
  ghostwriter brand set --principles "" --example ""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if exampleFile != "" {
				data, err := os.ReadFile(exampleFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", exampleFile, err)
				}
				example = string(data)
			}

			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			voice := &core.BrandVoice{Principles: principles, Example: example}
			if err := ws.store.SetBrandVoice(cmd.Context(), voice); err != nil {
				return err
			}
			if voice.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "✅ Brand voice cleared")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "✅ Brand voice saved")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&principles, "principles", "", "Writing principles")
	cmd.Flags().StringVar(&example, "example", "", "Example text written in the brand voice")
	cmd.Flags().StringVar(&exampleFile, "example-file", "", "Read the example text from a file")
	return cmd
}

func newBrandShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the brand voice",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			voice, err := ws.store.BrandVoice(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if voice.IsEmpty() {
				fmt.Fprintln(out, "No brand voice set")
				return nil
			}
			fmt.Fprintf(out, "Principles:\n%s\n\nExample:\n%s\n", voice.Principles, voice.Example)
			return nil
		},
	}
}
