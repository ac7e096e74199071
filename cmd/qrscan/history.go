package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docvet/qrscan/internal/config"
	"github.com/docvet/qrscan/internal/database"
	"github.com/docvet/qrscan/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists and inspects scan results stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [document-id]",
		Short: "List and inspect stored scan results",
		Long: `History lists scan results previously saved to the local database.

Without arguments it lists every stored scan, newest first. With a
document ID it lists only that document's scans. Document IDs combine
the file name with a content hash (for example "invoice.pdf#3a1b9cde0f12")
and are printed by the scan command and in every report.

Examples:
  # List all stored scans
  qrscan history

  # List scans for a specific document
  qrscan history "invoice.pdf#3a1b9cde0f12"

  # Show the latest stored result for a document
  qrscan history --show "invoice.pdf#3a1b9cde0f12"

  # Output the result as JSON
  qrscan history --show --json "invoice.pdf#3a1b9cde0f12"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("show", "s", false,
		"Show the latest stored result for the given document")
	cmd.Flags().IntP("limit", "n", 50,
		"Maximum number of scans to list")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	show, err := cmd.Flags().GetBool("show")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	var documentID string
	if len(args) > 0 {
		documentID = args[0]
	}
	if show && documentID == "" {
		return fmt.Errorf("--show requires a document ID (run 'qrscan history' to list them)")
	}

	db, err := database.Open(config.XDGDataDir(), database.Options{
		CreateIfNotExists: false,
		EnableWAL:         true,
	})
	if err != nil {
		return fmt.Errorf("no scan history found (run 'qrscan scan' first): %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if show {
		return showStoredResult(ctx, db, documentID, jsonOutput)
	}
	return listStoredScans(ctx, db, documentID, limit, jsonOutput)
}

// listStoredScans prints the scan history table.
func listStoredScans(ctx context.Context, db *database.ScanDB, documentID string, limit int, jsonOutput bool) error {
	scans, err := db.ListScans(ctx, documentID, limit)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(scans)
	}

	if len(scans) == 0 {
		if documentID != "" {
			fmt.Printf("No stored scans for %s\n", documentID)
		} else {
			fmt.Println("No stored scans")
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCANNED\tDOCUMENT\tPAGES\tURLS\tDEGRADED\tSTATUS")
	for _, s := range scans {
		status := "complete"
		if s.TimedOut {
			status = "timed out"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			s.StartedAt.Format("2006-01-02 15:04"),
			truncateDocumentID(s.DocumentID),
			s.PageCount,
			s.URLCount,
			s.Degraded,
			status,
		)
	}
	return w.Flush()
}

// showStoredResult renders a document's latest stored result.
func showStoredResult(ctx context.Context, db *database.ScanDB, documentID string, jsonOutput bool) error {
	result, err := db.LoadScanResult(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load scan result: %w", err)
	}
	if result == nil {
		return fmt.Errorf("no stored scans for %s", documentID)
	}

	var writer report.Writer
	if jsonOutput {
		writer = report.NewJSONWriter(os.Stdout, report.WithPrettyPrint())
	} else {
		writer = report.NewSimpleWriter(os.Stdout, report.WithVerbose(true))
	}

	_, err = writer.Write(result)
	return err
}

// truncateDocumentID shortens long document IDs for the table view while
// keeping the trailing content hash intact.
func truncateDocumentID(id string) string {
	const maxLen = 44
	if len(id) <= maxLen {
		return id
	}
	if i := strings.LastIndex(id, "#"); i > 0 {
		hash := id[i:]
		keep := maxLen - len(hash) - 3
		if keep > 0 {
			return id[:keep] + "..." + hash
		}
	}
	return id[:maxLen-3] + "..."
}
