package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-i2p/go-hopper/lib/config"
	"github.com/go-i2p/go-hopper/lib/cryptde"
	"github.com/go-i2p/go-hopper/lib/instrument"
	"github.com/go-i2p/go-hopper/lib/message"
	"github.com/go-i2p/go-hopper/lib/node"
	"github.com/go-i2p/go-hopper/lib/route"
	"github.com/go-i2p/go-hopper/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

type simulateOptions struct {
	hops     int
	packages int
	timeout  time.Duration
}

func newSimulateCommand() *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Route packages through an in-memory relay network",
		Long: `simulate builds hops+1 nodes on an in-memory network and sends DNS
resolution failure notices from the first node through the others to the last
node's Neighborhood, then prints what every node delivered and earned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.hops, "hops", 3, "number of hops after the originating node")
	cmd.Flags().IntVar(&opts.packages, "packages", 1, "number of packages to send")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "how long to wait for deliveries")
	return cmd
}

func runSimulation(cmd *cobra.Command, opts simulateOptions) error {
	if opts.hops < 1 {
		return oops.Errorf("--hops must be at least 1")
	}
	if opts.packages < 1 {
		return oops.Errorf("--packages must be at least 1")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg := config.Current()
	if cfg.Metrics.Address != "" {
		go func() {
			if err := instrument.Serve(ctx, cfg.Metrics.Address); err != nil {
				log.WithError(err).Error("metrics server failed")
			}
		}()
	}

	network := transport.NewNetwork()
	nodes := make([]*node.Node, opts.hops+1)
	for i := range nodes {
		cd, err := cryptde.GenerateX25519CryptDE()
		if err != nil {
			return err
		}
		n, err := node.New(network, node.Config{CryptDE: cd, Hopper: cfg.Hopper, Admission: &cfg.Admission})
		if err != nil {
			return err
		}
		n.Start(ctx)
		defer n.Stop()
		nodes[i] = n
	}

	keys := make([]cryptde.PublicKey, opts.hops)
	for i, n := range nodes[1:] {
		keys[i] = n.PublicKey()
	}
	seg, err := route.NewRouteSegment(keys, route.Neighborhood)
	if err != nil {
		return err
	}
	r, err := route.OneWay(seg)
	if err != nil {
		return err
	}

	origin, dest := nodes[0], nodes[len(nodes)-1]
	for i := 0; i < opts.packages; i++ {
		msg := message.DnsResolveFailed{StreamKey: message.StreamKey(fmt.Sprintf("simulate-%d", i))}
		if err := origin.Send(r, msg); err != nil {
			return oops.Wrapf(err, "sending package %d", i)
		}
	}

	delivered := awaitDeliveries(ctx, dest, opts.packages, opts.timeout)
	log.WithFields(logger.Fields{
		"at":        "runSimulation",
		"hops":      opts.hops,
		"sent":      opts.packages,
		"delivered": delivered,
	}).Info("simulation finished")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d package(s) over %d hop(s)", opts.packages, opts.hops)))
	fmt.Fprintln(out, renderNodes(nodes, delivered))
	status := okStyle.Render(fmt.Sprintf("delivered %d/%d", delivered, opts.packages))
	if delivered != opts.packages {
		status = failStyle.Render(fmt.Sprintf("delivered %d/%d", delivered, opts.packages))
	}
	fmt.Fprintln(out, status)

	if cfg.Metrics.Address != "" {
		fmt.Fprintf(out, "metrics on http://%s/metrics, interrupt to exit\n", cfg.Metrics.Address)
		<-cmd.Context().Done()
	}
	if delivered != opts.packages {
		return oops.Errorf("only %d of %d packages delivered", delivered, opts.packages)
	}
	return nil
}

func awaitDeliveries(ctx context.Context, dest *node.Node, want int, timeout time.Duration) int {
	inbox := dest.Inbox(route.Neighborhood)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	got := 0
	for got < want {
		select {
		case <-inbox.C():
			got++
		case <-deadline.C:
			return got
		case <-ctx.Done():
			return got
		}
	}
	return got
}

func renderNodes(nodes []*node.Node, delivered int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "ROLE", "PUBLIC KEY", "ADDRESS", "RELAYS", "FEES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, n := range nodes {
		role := "relay"
		switch i {
		case 0:
			role = "origin"
		case len(nodes) - 1:
			role = fmt.Sprintf("destination (%d delivered)", delivered)
		}
		var relays uint64
		for _, e := range n.Ledger().Snapshot() {
			relays += e.Services
		}
		t.Row(
			strconv.Itoa(i),
			role,
			n.PublicKey().Short(),
			n.Endpoint().Addr().String(),
			strconv.FormatUint(relays, 10),
			strconv.FormatUint(n.Ledger().Total(), 10),
		)
	}
	return t.String()
}
