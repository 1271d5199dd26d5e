package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether the hutch server is running",
		Long:  "Query the readiness endpoint of a running server and report its database and camera checks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = readyzURL(viper.GetString("server.host"), viper.GetInt("server.port"))
			}
			client := &http.Client{Timeout: 2 * time.Second}
			return runStatus(cmd.OutOrStdout(), client, url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Readiness URL (default derived from server.host and server.port)")

	return cmd
}

func readyzURL(host string, port int) string {
	if port == 0 {
		port = 8000
	}
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d/readyz", host, port)
}

type readyzReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func runStatus(out io.Writer, client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(out, "Server is not responding at %s\n", url)
		return nil
	}
	defer resp.Body.Close()

	var report readyzReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("decode readiness response: %w", err)
	}

	fmt.Fprintf(out, "Server is running (%s)\n", report.Status)
	fmt.Fprintf(out, "  Ready:   %s (%d)\n", url, resp.StatusCode)

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-8s %s\n", name+":", report.Checks[name])
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server is %s", report.Status)
	}
	return nil
}
