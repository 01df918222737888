package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DivyanshMauryaaa/testgem/internal/dashboard"
	"github.com/DivyanshMauryaaa/testgem/pkg/testgem"
)

var (
	serverURL string
	apiToken  string
)

func newClient() *testgem.Client {
	return testgem.New(serverURL, apiToken)
}

func parseKind(value string) (testgem.Kind, error) {
	switch testgem.Kind(value) {
	case testgem.KindDocuments, testgem.KindNotes, testgem.KindWorkspaces:
		return testgem.Kind(value), nil
	}
	return "", fmt.Errorf("unknown kind %q (want documents, notes or workspaces)", value)
}

var lsCmd = &cobra.Command{
	Use:   "ls [kind]",
	Short: "List your documents, notes and workspaces",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := dashboard.New(newClient(), logger)
		if err := d.Load(commandContext(cmd)); err != nil {
			return err
		}
		kinds := []testgem.Kind{testgem.KindDocuments, testgem.KindNotes, testgem.KindWorkspaces}
		if len(args) == 1 {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			kinds = []testgem.Kind{kind}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tID\tTITLE")
		for _, kind := range kinds {
			for _, item := range d.Items(kind) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", kind, item.ID, item.Title)
			}
		}
		return w.Flush()
	},
}

var (
	saveTitle string
	saveKind  string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate text with Gemini, optionally saving it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		client := newClient()
		text, err := client.Generate(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)

		if !cmd.Flags().Changed("save") {
			return nil
		}
		kind, err := parseKind(saveKind)
		if err != nil {
			return err
		}
		created, err := dashboard.New(client, logger).SaveGenerated(ctx, kind, saveTitle, text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s %s\n", kind, created.ID)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [kind] [id] [title]",
	Short: "Rename a record",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		title := strings.Join(args[2:], " ")
		if err := dashboard.New(newClient(), logger).Rename(commandContext(cmd), kind, args[1], title); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s %s\n", kind, args[1])
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm [kind] [id]",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		if err := dashboard.New(newClient(), logger).Delete(commandContext(cmd), kind, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, args[1])
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [kind] [id] [instruction]",
	Short: "Ask Gemini to edit a record, then keep or deny the result",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		d := dashboard.New(newClient(), logger)
		p, err := d.OpenAIEdit(ctx, kind, args[1], strings.Join(args[2:], " "))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Proposed content:\n\n%s\n\n", p.Content)
		keep, err := confirm(cmd.InOrStdin(), out, "Keep this edit? [y/N] ")
		if err != nil {
			return err
		}
		if keep {
			if _, err := d.Keep(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Kept.")
			return nil
		}
		if err := d.Deny(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Denied.")
		return nil
	},
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes" || answer == "keep", nil
}

var (
	exportFormat string
	exportOut    string
	exportLink   bool
)

var exportCmd = &cobra.Command{
	Use:   "export [kind] [id]",
	Short: "Download a record as docx, pdf or md",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		kind, err := parseKind(args[0])
		if err != nil {
			return err
		}
		client := newClient()

		if exportLink {
			link, err := client.ExportLink(ctx, kind, args[1], exportFormat)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link.URL)
			return nil
		}

		result, err := client.Export(ctx, kind, args[1], exportFormat)
		if err != nil {
			return err
		}
		target := exportOut
		if target == "" {
			target = result.Filename
		}
		if target == "" {
			target = args[1] + "." + exportFormat
		}
		if err := os.WriteFile(filepath.Clean(target), result.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", target, len(result.Data))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{lsCmd, generateCmd, renameCmd, rmCmd, editCmd, exportCmd} {
		c.Flags().StringVar(&serverURL, "server", envOr("TESTGEM_URL", "http://localhost:8787"), "API base URL")
		c.Flags().StringVar(&apiToken, "token", os.Getenv("TESTGEM_TOKEN"), "Bearer token")
		rootCmd.AddCommand(c)
	}
	generateCmd.Flags().StringVar(&saveTitle, "save", "", "Save the generated text under this title")
	generateCmd.Flags().StringVar(&saveKind, "kind", string(testgem.KindDocuments), "Kind to save into")
	exportCmd.Flags().StringVar(&exportFormat, "format", "docx", "docx, pdf or md")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file")
	exportCmd.Flags().BoolVar(&exportLink, "link", false, "Print a presigned download link instead of downloading")
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
