// Command hostelctl runs the hostelcore allocation server and administers it
// over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hostelcore/internal/client"
)

const defaultServer = "http://localhost:8080"

type globalFlags struct {
	configPath string
	server     string
	token      string
	timeout    time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "hostelctl",
		Short:         "hostelctl - hostel room allocation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", os.Getenv("HOSTELCORE_CONFIG"), "path to YAML config file")
	pf.StringVar(&flags.server, "server", envOr("HOSTELCORE_SERVER", defaultServer), "admin API base URL")
	pf.StringVar(&flags.token, "token", os.Getenv("HOSTELCORE_ADMIN_TOKEN"), "admin bearer token")
	pf.DurationVar(&flags.timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		newServeCmd(flags),
		newRoomsCmd(flags),
		newStudentsCmd(flags),
		newAllocateCmd(flags),
		newMoveCmd(flags),
		newExchangeCmd(flags),
		newUnassignCmd(flags),
		newGenerateCmd(flags),
		newExportCmd(flags),
		newStatsCmd(flags),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (f *globalFlags) client() *client.Client {
	return client.New(f.server, f.token, client.WithTimeout(f.timeout))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
