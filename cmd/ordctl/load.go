package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ordview/ordview/common/content"
	"github.com/ordview/ordview/common/loader"
	"github.com/ordview/ordview/common/validation"
)

type loadSummary struct {
	ContentID   string           `json:"content_id"`
	Source      loader.Source    `json:"source"`
	ContentType string           `json:"content_type"`
	Size        int              `json:"size"`
	Analysis    content.Analysis `json:"analysis"`
	Text        string           `json:"text,omitempty"`
}

// NewLoadCmd creates the load command
func NewLoadCmd(opts *rootOptions) *cobra.Command {
	var (
		retry      bool
		withText   bool
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "load <inscription-id>",
		Short: "Load an inscription through the source chain",
		Long:  `Resolve an inscription through the failure memo, cache, mirror and network, then print a JSON summary.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentID := args[0]
			if err := validation.ValidateContentID(contentID); err != nil {
				return err
			}

			ctx := cmd.Context()
			components, err := opts.setup(ctx)
			if err != nil {
				return err
			}
			defer components.Shutdown(ctx)

			orchestrator, err := newOrchestrator(components)
			if err != nil {
				return err
			}

			var loaded *loader.LoadedContent
			if retry {
				loaded, err = orchestrator.Retry(ctx, contentID)
			} else {
				loaded, err = orchestrator.Load(ctx, contentID)
			}
			if err != nil {
				if loadErr, ok := loader.AsLoadError(err); ok {
					return fmt.Errorf("load %s failed (retryable=%t): %w", contentID, loadErr.Retryable(), err)
				}
				return err
			}
			defer loaded.Handle.Release()

			if outputPath != "" {
				if err := os.WriteFile(outputPath, loaded.Data, 0o644); err != nil {
					return fmt.Errorf("failed to write content: %w", err)
				}
			}

			summary := loadSummary{
				ContentID:   loaded.ContentID,
				Source:      loaded.Source,
				ContentType: loaded.ContentType,
				Size:        len(loaded.Data),
				Analysis:    loaded.Analysis,
			}
			if withText && loaded.IsText() {
				summary.Text = loaded.Text
			}

			out, err := json.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "clear a remembered temporary failure first")
	cmd.Flags().BoolVar(&withText, "text", false, "include decoded text in the output")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the content bytes to a file")

	return cmd
}
