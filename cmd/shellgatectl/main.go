// shellgatectl is a small client for a running shellgated instance.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mcp-noble/shellgate/pkg/history"
	"github.com/mcp-noble/shellgate/pkg/version"
	"github.com/spf13/cobra"
)

const defaultServer = "http://127.0.0.1:8080"

func main() {
	rootCmd := &cobra.Command{
		Use:   "shellgatectl",
		Short: "Client for the shellgate command gateway",
	}

	rootCmd.PersistentFlags().String("server", defaultServer, "shellgated base URL")

	rootCmd.AddCommand(
		runCmd(),
		allowedCmd(),
		sysinfoCmd(),
		historyCmd(),
		healthCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type executeResponse struct {
	Success  bool   `json:"success"`
	Command  string `json:"command"`
	Output   string `json:"output"`
	Error    string `json:"error"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out"`
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <command>...",
		Short: "Run a command through the gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			command := strings.Join(args, " ")

			form := url.Values{}
			form.Set("command", command)
			resp, err := httpClient().PostForm(server+"/api/execute", form)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			var result executeResponse
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			if !result.Success {
				return fmt.Errorf("%s", result.Error)
			}
			if result.Output != "" {
				fmt.Print(result.Output)
			}
			if result.Error != "" {
				fmt.Fprint(os.Stderr, result.Error)
			}
			if result.TimedOut {
				fmt.Fprintln(os.Stderr, "command timed out")
			}
			if result.ExitCode != 0 {
				os.Exit(result.ExitCode)
			}
			return nil
		},
	}
}

func allowedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allowed",
		Short: "List the commands the gateway permits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			var payload struct {
				AllowedCommands []string `json:"allowed_commands"`
				Count           int      `json:"count"`
				Unrestricted    bool     `json:"unrestricted"`
			}
			if err := getJSON(server+"/api/config", &payload); err != nil {
				return err
			}
			if payload.Unrestricted {
				fmt.Println("all commands allowed (unrestricted mode)")
				return nil
			}
			fmt.Printf("allowed commands (%d):\n", payload.Count)
			for _, name := range payload.AllowedCommands {
				fmt.Println("  " + name)
			}
			return nil
		},
	}
}

func sysinfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo",
		Short: "Show host diagnostics reported by the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			var payload struct {
				Report string `json:"report"`
			}
			if err := getJSON(server+"/api/system", &payload); err != nil {
				return err
			}
			fmt.Println(payload.Report)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent gateway requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			var entries []history.Entry
			if err := getJSON(server+"/api/history", &entries); err != nil {
				return err
			}
			for _, entry := range entries {
				status := fmt.Sprintf("exit %d", entry.ExitCode)
				if entry.Denied {
					status = "denied: " + entry.Reason
				} else if entry.TimedOut {
					status = "timed out"
				}
				fmt.Printf("%s  %-40s  %s\n", entry.Time.Format(time.RFC3339), entry.Command, status)
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the gateway is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			var payload struct {
				Status string `json:"status"`
			}
			if err := getJSON(server+"/health", &payload); err != nil {
				return err
			}
			fmt.Println(payload.Status)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

func getJSON(url string, out any) error {
	resp, err := httpClient().Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
