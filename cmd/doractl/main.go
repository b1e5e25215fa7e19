// Command doractl calls the tools of a DORA metrics molecule from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/and161185/dora-molecule/internal/client"
	"github.com/and161185/dora-molecule/internal/config"
	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/internal/widget"
	"github.com/and161185/dora-molecule/model"
)

const usage = `usage: doractl [-a addr] [-k key] [-timeout s] <command> [args]

commands:
  tools                                   list the molecule's tools
  services                                list known services
  metrics <service> [-days N]             show the four DORA metrics
  deployments <service> [-limit N] [-status all|success|failed]
`

var errUsage = errors.New("invalid usage")

// toolClient is the part of client.Client the commands use.
type toolClient interface {
	ListTools(ctx context.Context) ([]dora.Tool, error)
	Services(ctx context.Context) ([]string, error)
	DoraMetrics(ctx context.Context, service string, days int) (*model.ToolResult, error)
	Deployments(ctx context.Context, service string, limit int, status string) (*model.DeploymentList, error)
}

func main() {
	cfg := config.NewClientConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, client.NewClient(cfg), flag.Args(), os.Stdout)
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "doractl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c toolClient, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "tools":
		return listTools(ctx, c, out)
	case "services":
		return listServices(ctx, c, out)
	case "metrics":
		return showMetrics(ctx, c, rest, out)
	case "deployments":
		return listDeployments(ctx, c, rest, out)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// parseWithService accepts the service name before or after the flags.
func parseWithService(fs *flag.FlagSet, args []string) (string, error) {
	var service string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		service, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%w: %v", errUsage, err)
	}
	if service == "" {
		service = fs.Arg(0)
	}
	if service == "" {
		return "", fmt.Errorf("%w: service is required", errUsage)
	}
	return service, nil
}

func listTools(ctx context.Context, c toolClient, out io.Writer) error {
	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range tools {
		params := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			params = append(params, p.Name)
		}
		fmt.Fprintf(tw, "%s\t(%s)\t%s\n", t.Name, strings.Join(params, ", "), t.Description)
	}
	return tw.Flush()
}

func listServices(ctx context.Context, c toolClient, out io.Writer) error {
	services, err := c.Services(ctx)
	if err != nil {
		return err
	}
	for _, s := range services {
		fmt.Fprintln(out, s)
	}
	return nil
}

func showMetrics(ctx context.Context, c toolClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	days := fs.Int("days", dora.DefaultDays, "period in days")
	service, err := parseWithService(fs, args)
	if err != nil {
		return err
	}

	res, err := c.DoraMetrics(ctx, service, *days)
	if err != nil {
		return err
	}
	view := widget.Render(&res.MetricsPayload)

	fmt.Fprintf(out, "%s (%d days)\n", view.Heading, res.PeriodDays)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, card := range view.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", card.Title, card.Value, card.Rating)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "renderer: %s %s\n", res.Meta.Renderer.Type, res.Meta.Renderer.Source)
	return nil
}

func listDeployments(ctx context.Context, c toolClient, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("deployments", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("limit", dora.DefaultLimit, "maximum number of deployments")
	status := fs.String("status", "all", "all, success or failed")
	service, err := parseWithService(fs, args)
	if err != nil {
		return err
	}

	list, err := c.Deployments(ctx, service, *limit, *status)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, d := range list.Deployments {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.Version, d.Status, d.Timestamp.Format(time.RFC3339), d.Author, d.CommitSHA)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d deployments\n", len(list.Deployments), list.Total)
	return nil
}
