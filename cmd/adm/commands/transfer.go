package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"learnverse/internal/models"
	contextutils "learnverse/internal/utils"

	"github.com/spf13/cobra"
)

// TransferCommands returns the export and import commands
func TransferCommands(env *Env) []*cobra.Command {
	return []*cobra.Command{exportCmd(env), importCmd(env)}
}

func exportCmd(env *Env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <profile>",
		Short: "Write a profile document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			transfer, err := container.GetTransferService()
			if err != nil {
				return err
			}
			doc, err := transfer.Export(ctx, args[0])
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(output)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to create %s", output)
			}
			if err := printJSON(f, doc); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return contextutils.WrapErrorf(err, "failed to write %s", output)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d keys of %s to %s\n", len(doc.Entries), args[0], output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write instead of stdout")

	return cmd
}

func importCmd(env *Env) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <profile> <file>",
		Short: "Load a profile document or a raw key dump into a profile",
		Long: `Load an exported profile document, or a flat JSON object of key to
stored value as kept by the browser, into a profile. Entries are validated
before anything is written. With --replace every existing key is removed first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			entries, err := readImportFile(args[1])
			if err != nil {
				return err
			}
			container, err := env.Container(ctx)
			if err != nil {
				return err
			}
			transfer, err := container.GetTransferService()
			if err != nil {
				return err
			}
			result, err := transfer.Import(ctx, args[0], entries, replace)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d keys into %s\n", len(result.Keys), result.ProfileID)
			if len(result.NormalizedScores) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "rescaled raw scores: %s\n", strings.Join(result.NormalizedScores, ", "))
			}
			printReconcileReport(cmd, result.Reconcile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Remove existing keys before importing")

	return cmd
}

// readImportFile accepts an exported document or a flat key dump
func readImportFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read %s", path)
	}

	var doc models.ProfileDocument
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Entries != nil {
		return doc.Entries, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "%s is neither a profile document nor a key dump: %v", path, err)
	}
	return entries, nil
}
