package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/zenprocess/open-lovable-cf/internal/audit"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/health"
	"github.com/zenprocess/open-lovable-cf/internal/logging"
	"github.com/zenprocess/open-lovable-cf/internal/mirror"
	"github.com/zenprocess/open-lovable-cf/internal/progress"
	"github.com/zenprocess/open-lovable-cf/internal/system"
	"github.com/zenprocess/open-lovable-cf/internal/tui"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Manage the sandbox of a running server",
	Long: `Manage the active sandbox of a running "lovable-ctl serve" instance.

Every subcommand calls the server's HTTP API; use --server to target a
server other than the configured listen address.`,
}

var sandboxServer string

func init() {
	sandboxCmd.PersistentFlags().StringVar(&sandboxServer, "server", "", "Server URL (default from server.listen)")

	sandboxCmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create a sandbox, replacing the active one",
			Args:  cobra.NoArgs,
			RunE:  runSandboxCreate,
		},
		&cobra.Command{
			Use:   "kill",
			Short: "Destroy the active sandbox",
			Args:  cobra.NoArgs,
			RunE:  runSandboxKill,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the active sandbox and its health",
			Args:  cobra.NoArgs,
			RunE:  runSandboxStatus,
		},
		sandboxFilesCmd,
		&cobra.Command{
			Use:   "load <dir>",
			Short: "Load a local project into the active sandbox",
			Long: `Load every text file under dir into the active sandbox. Dependency
folders, build output and dotfiles are skipped. Later applies are
treated as edits of the loaded project.`,
			Args: cobra.ExactArgs(1),
			RunE: runSandboxLoad,
		},
		&cobra.Command{
			Use:   "restart",
			Short: "Restart the Vite dev server",
			Args:  cobra.NoArgs,
			RunE:  runSandboxRestart,
		},
		&cobra.Command{
			Use:   "exec -- <command> [args...]",
			Short: "Run a command in the sandbox app directory",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runSandboxExec,
		},
		&cobra.Command{
			Use:   "install <package>...",
			Short: "Install npm packages into the sandbox",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runSandboxInstall,
		},
		&cobra.Command{
			Use:   "apply [file|-]",
			Short: "Apply an AI response through the server",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runSandboxApply,
		},
		&cobra.Command{
			Use:   "history [sandbox-id]",
			Short: "Show recorded events for a sandbox",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runSandboxHistory,
		},
	)
	sandboxFilesCmd.Flags().BoolVar(&filesJSON, "json", false, "Print the full manifest as JSON")
	rootCmd.AddCommand(sandboxCmd)
}

var (
	sandboxFilesCmd = &cobra.Command{
		Use:   "files",
		Short: "List the files in the active sandbox",
		Args:  cobra.NoArgs,
		RunE:  runSandboxFiles,
	}
	filesJSON bool
)

// client returns an API client for --server, or the configured address.
func client() (*apiClient, error) {
	if sandboxServer != "" {
		return newAPIClient(sandboxServer), nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAPIClient(cfg.Server.Listen), nil
}

func runSandboxCreate(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	logInfo("Creating sandbox...")
	var resp struct {
		SandboxID string `json:"sandboxId"`
		URL       string `json:"url"`
	}
	if err := c.do(cmd.Context(), http.MethodPost, "/api/create-ai-sandbox", nil, &resp); err != nil {
		return err
	}
	logSuccess("Sandbox %s created", resp.SandboxID)
	fmt.Fprintf(cmd.OutOrStdout(), "  URL: %s\n", resp.URL)
	return nil
}

func runSandboxKill(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	var resp struct {
		Killed bool `json:"sandboxKilled"`
	}
	if err := c.do(cmd.Context(), http.MethodPost, "/api/kill-sandbox", nil, &resp); err != nil {
		return err
	}
	if resp.Killed {
		logSuccess("Sandbox destroyed")
	} else {
		logInfo("No sandbox was running")
	}
	return nil
}

func runSandboxStatus(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	var resp struct {
		Active      bool   `json:"active"`
		Healthy     bool   `json:"healthy"`
		Message     string `json:"message"`
		SandboxData *struct {
			SandboxID    string        `json:"sandboxId"`
			URL          string        `json:"url"`
			FilesTracked []string      `json:"filesTracked"`
			Status       health.Status `json:"status"`
			Uptime       string        `json:"uptime"`
		} `json:"sandboxData"`
	}
	if err := c.do(cmd.Context(), http.MethodGet, "/api/sandbox-status", nil, &resp); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !resp.Active || resp.SandboxData == nil {
		fmt.Fprintln(w, resp.Message)
		return nil
	}
	d := resp.SandboxData
	fmt.Fprintf(w, "Sandbox: %s\n", d.SandboxID)
	fmt.Fprintf(w, "URL: %s\n", d.URL)
	fmt.Fprintf(w, "Files tracked: %d\n", len(d.FilesTracked))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Health Checks:")
	fmt.Fprintf(w, "  Status: %s\n", d.Status)
	fmt.Fprintf(w, "  Healthy: %s\n", boolStatus(resp.Healthy))
	if d.Uptime != "" {
		fmt.Fprintf(w, "  Uptime: %s\n", d.Uptime)
	}
	return nil
}

func boolStatus(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

func runSandboxFiles(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	var resp struct {
		Files     map[string]string `json:"files"`
		FileCount int               `json:"fileCount"`
		Manifest  any               `json:"manifest"`
		Structure string            `json:"structure"`
	}
	if err := c.do(cmd.Context(), http.MethodGet, "/api/get-sandbox-files", nil, &resp); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if filesJSON {
		return writeJSONIndent(w, resp)
	}
	paths := make([]string, 0, len(resp.Files))
	for p := range resp.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(w, "%8d  %s\n", len(resp.Files[p]), p)
	}
	fmt.Fprintf(w, "%d files\n", resp.FileCount)
	return nil
}

func runSandboxLoad(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	files, err := mirror.New(args[0], system.OS(), logging.Logger).ReadAll()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.ValidationError("no files found in " + args[0])
	}

	var resp struct {
		Loaded int      `json:"loaded"`
		Errors []string `json:"errors"`
	}
	if err := c.do(cmd.Context(), http.MethodPost, "/api/load-project", map[string]any{"files": files}, &resp); err != nil {
		return err
	}
	for _, e := range resp.Errors {
		logWarning("%s", e)
	}
	logSuccess("Loaded %d of %d files", resp.Loaded, len(files))
	if len(resp.Errors) > 0 {
		return errors.New(errors.ExitGeneralError, fmt.Sprintf("%d files failed to load", len(resp.Errors)))
	}
	return nil
}

func runSandboxRestart(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	var resp struct {
		Restarted bool   `json:"restarted"`
		Message   string `json:"message"`
	}
	if err := c.do(cmd.Context(), http.MethodPost, "/api/restart-vite", nil, &resp); err != nil {
		return err
	}
	if resp.Restarted {
		logSuccess("%s", resp.Message)
	} else {
		logInfo("%s", resp.Message)
	}
	return nil
}

func runSandboxExec(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	var resp struct {
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
		ExitCode int    `json:"exitCode"`
	}
	command := shellquote.Join(args...)
	if err := c.do(cmd.Context(), http.MethodPost, "/api/run-command", map[string]string{"command": command}, &resp); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), resp.Stdout)
	fmt.Fprint(cmd.ErrOrStderr(), resp.Stderr)
	if resp.ExitCode != 0 {
		return errors.New(resp.ExitCode, fmt.Sprintf("command exited with code %d", resp.ExitCode))
	}
	return nil
}

// printStream renders streamed events and returns the terminal one.
func printStream(cmd *cobra.Command, path string, body any) error {
	c, err := client()
	if err != nil {
		return err
	}
	var final progress.Event
	err = c.stream(cmd.Context(), path, body, func(e progress.Event) {
		if progress.IsTerminal(e) {
			final = e
		}
		if line, ok := tui.FormatEvent(e); ok {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	})
	if err != nil {
		return err
	}
	return runOutcome(final)
}

func runSandboxInstall(cmd *cobra.Command, args []string) error {
	return printStream(cmd, "/api/install-packages", map[string]any{"packages": args})
}

func runSandboxApply(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	text, err := readResponse(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	return printStream(cmd, "/api/apply-ai-code-stream", map[string]any{"response": text})
}

func runSandboxHistory(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}
	path := "/api/sandbox-history"
	if len(args) == 1 {
		path += "?sandboxId=" + url.QueryEscape(args[0])
	}
	var resp struct {
		Events []audit.Event `json:"events"`
	}
	if err := c.do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(resp.Events) == 0 {
		fmt.Fprintln(w, "No events recorded")
		return nil
	}
	for _, e := range resp.Events {
		line := fmt.Sprintf("%s  %-9s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Details)
		if e.Result != nil {
			line += fmt.Sprintf(" (%d created, %d updated, %d errors)",
				len(e.Result.FilesCreated), len(e.Result.FilesUpdated), len(e.Result.Errors))
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
	return nil
}
