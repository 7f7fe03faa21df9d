// Package interactive provides the interactive command-line interface
// for the openclaw node.
package interactive

import (
	"context"
	"fmt"
	"io"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/tualatrix/openclaw/pkg/bridge"
	"github.com/tualatrix/openclaw/pkg/connection"
	"github.com/tualatrix/openclaw/pkg/credstore"
	"github.com/tualatrix/openclaw/pkg/discovery"
	"github.com/tualatrix/openclaw/pkg/gateway"
	"github.com/tualatrix/openclaw/pkg/identity"
	"github.com/tualatrix/openclaw/pkg/pairing"
)

// pairTimeout bounds one interactive pairing attempt.
const pairTimeout = 90 * time.Second

// Deps wires the node's owned components into the interactive loop.
type Deps struct {
	Engine      *discovery.Engine
	Resolver    *gateway.Resolver
	Client      *pairing.Client
	Link        *connection.Link
	Store       credstore.Store
	Local       *identity.Local
	NodeID      string
	DisplayName string
}

// Node handles interactive mode for openclaw-node.
type Node struct {
	deps Deps
	rl   *readline.Instance
}

// New creates a new interactive node handler.
func New(deps Deps) (*Node, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "node> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Node{deps: deps, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (n *Node) Stdout() io.Writer {
	return n.rl.Stdout()
}

// Run starts the interactive command loop.
func (n *Node) Run(ctx context.Context, cancel context.CancelFunc) {
	defer n.rl.Close()

	n.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := n.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(n.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			n.printHelp()

		case "list", "ls":
			n.cmdList()

		case "discover", "d":
			n.cmdDiscover()

		case "pair", "p":
			n.cmdPair(ctx, args)

		case "forget":
			n.cmdForget(args)

		case "status", "s":
			n.cmdStatus()

		case "mode", "m":
			n.cmdMode(args)

		case "config", "c":
			n.cmdConfig(ctx)

		case "tunnel", "t":
			n.cmdTunnel(ctx)

		case "connect", "conn":
			n.cmdConnect(ctx)

		case "identity", "id":
			n.cmdIdentity()

		case "quit", "exit", "q":
			fmt.Fprintln(n.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(n.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (n *Node) printHelp() {
	fmt.Fprintln(n.rl.Stdout(), `
OpenClaw Node Commands:
  Discovery:
    list                 - List discovered bridges
    discover             - Restart the bridge search
    status               - Show discovery and endpoint state
    identity             - Show local identity tokens

  Pairing:
    pair <n|stable-id>   - Pair with a discovered bridge
    forget <n|stable-id> - Drop the stored token for a bridge

  Gateway:
    mode <local|remote|unconfigured> - Set connection mode
    config               - Resolve the control endpoint
    tunnel               - Establish the remote control tunnel
    connect              - Connect the control link

  quit                   - Exit the node`)
}

func (n *Node) cmdList() {
	endpoints := n.deps.Engine.Endpoints()
	if len(endpoints) == 0 {
		fmt.Fprintf(n.rl.Stdout(), "No bridges found (%s)\n", n.deps.Engine.StatusText())
		return
	}

	fmt.Fprintf(n.rl.Stdout(), "\n%-3s %-24s %-20s %-6s %-16s %s\n",
		"#", "NAME", "HOST", "PORT", "STABLE ID", "PAIRED")
	for i, e := range endpoints {
		paired := ""
		if credstore.Token(n.deps.Store, e.StableID) != "" {
			paired = "yes"
		}
		fmt.Fprintf(n.rl.Stdout(), "%-3d %-24s %-20s %-6d %-16s %s\n",
			i+1, e.DisplayName, hostOf(e), e.Port, e.StableID, paired)
	}
	fmt.Fprintln(n.rl.Stdout())
}

func (n *Node) cmdDiscover() {
	n.deps.Engine.Stop()
	if err := n.deps.Engine.Start(); err != nil {
		fmt.Fprintf(n.rl.Stdout(), "Restart failed: %v\n", err)
		return
	}
	fmt.Fprintf(n.rl.Stdout(), "%s\n", n.deps.Engine.StatusText())
}

func (n *Node) cmdPair(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(n.rl.Stdout(), "Usage: pair <n|stable-id>")
		return
	}

	endpoint := n.resolveEndpoint(args[0])
	if endpoint == nil {
		fmt.Fprintf(n.rl.Stdout(), "Bridge not found: %s\n", args[0])
		return
	}

	addr := net.JoinHostPort(hostOf(endpoint), strconv.Itoa(endpoint.Port))
	fmt.Fprintf(n.rl.Stdout(), "Pairing with %s (%s)...\n", endpoint.DisplayName, addr)

	hello := pairing.Hello{
		Type:        pairing.TypeHello,
		NodeID:      n.deps.NodeID,
		DisplayName: n.deps.DisplayName,
		Token:       credstore.Token(n.deps.Store, endpoint.StableID),
		Platform:    runtime.GOOS,
	}

	pairCtx, cancel := context.WithTimeout(ctx, pairTimeout)
	defer cancel()

	result := n.deps.Client.PairAndHello(pairCtx, addr, hello)
	if !result.OK {
		fmt.Fprintf(n.rl.Stdout(), "Pairing failed: %v\n", result.Err)
		return
	}

	if err := n.deps.Store.Set(credstore.TokenKey(endpoint.StableID), result.Token); err != nil {
		fmt.Fprintf(n.rl.Stdout(), "Paired, but storing the token failed: %v\n", err)
		return
	}
	fmt.Fprintf(n.rl.Stdout(), "Paired with %s\n", endpoint.DisplayName)
}

func (n *Node) cmdForget(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(n.rl.Stdout(), "Usage: forget <n|stable-id>")
		return
	}

	endpoint := n.resolveEndpoint(args[0])
	if endpoint == nil {
		fmt.Fprintf(n.rl.Stdout(), "Bridge not found: %s\n", args[0])
		return
	}

	if err := n.deps.Store.Delete(credstore.TokenKey(endpoint.StableID)); err != nil {
		fmt.Fprintf(n.rl.Stdout(), "Failed: %v\n", err)
		return
	}
	fmt.Fprintf(n.rl.Stdout(), "Forgot token for %s\n", endpoint.DisplayName)
}

func (n *Node) cmdStatus() {
	fmt.Fprintf(n.rl.Stdout(), "Discovery: %s (%d bridges)\n",
		n.deps.Engine.StatusText(), len(n.deps.Engine.Endpoints()))

	st := n.deps.Resolver.State()
	if st.Ready {
		fmt.Fprintf(n.rl.Stdout(), "Endpoint:  ready (%s mode) %s\n", st.Mode, st.URL)
	} else {
		fmt.Fprintf(n.rl.Stdout(), "Endpoint:  unavailable (%s mode): %s\n", st.Mode, st.Reason)
	}

	fmt.Fprintf(n.rl.Stdout(), "Link:      %s\n", n.deps.Link.State())
}

func (n *Node) cmdMode(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(n.rl.Stdout(), "Usage: mode <local|remote|unconfigured>")
		return
	}

	mode := gateway.ParseMode(strings.ToLower(args[0]))
	st := n.deps.Resolver.SetMode(mode)
	if st.Ready {
		fmt.Fprintf(n.rl.Stdout(), "Mode %s: ready, %s\n", mode, st.URL)
	} else {
		fmt.Fprintf(n.rl.Stdout(), "Mode %s: unavailable, %s\n", mode, st.Reason)
	}
}

func (n *Node) cmdConfig(ctx context.Context) {
	cfgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := n.deps.Resolver.RequireConfig(cfgCtx)
	if err != nil {
		fmt.Fprintf(n.rl.Stdout(), "No usable endpoint: %v\n", err)
		return
	}

	fmt.Fprintf(n.rl.Stdout(), "URL:      %s\n", st.URL)
	if st.Token != "" {
		fmt.Fprintf(n.rl.Stdout(), "Token:    %s\n", st.Token)
	}
	if st.Password != "" {
		fmt.Fprintln(n.rl.Stdout(), "Password: (set)")
	}
}

func (n *Node) cmdTunnel(ctx context.Context) {
	tunCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	port, err := n.deps.Resolver.EnsureRemoteControlTunnel(tunCtx)
	if err != nil {
		fmt.Fprintf(n.rl.Stdout(), "Tunnel failed: %v\n", err)
		return
	}
	fmt.Fprintf(n.rl.Stdout(), "Tunnel ready on local port %d\n", port)
}

func (n *Node) cmdConnect(ctx context.Context) {
	connCtx, cancel := context.WithTimeout(ctx, connection.DialTimeout)
	defer cancel()

	if err := n.deps.Link.Connect(connCtx); err != nil {
		fmt.Fprintf(n.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintf(n.rl.Stdout(), "Connected to %s\n", n.deps.Link.Endpoint().URL)
}

func (n *Node) cmdIdentity() {
	for _, tok := range n.deps.Local.Tokens() {
		fmt.Fprintf(n.rl.Stdout(), "  %s\n", tok)
	}
}

// resolveEndpoint maps a list index or stable id (full or prefix) to a
// discovered endpoint.
func (n *Node) resolveEndpoint(arg string) *bridge.Endpoint {
	endpoints := n.deps.Engine.Endpoints()

	if idx, err := strconv.Atoi(arg); err == nil {
		if idx >= 1 && idx <= len(endpoints) {
			return endpoints[idx-1]
		}
		return nil
	}

	arg = strings.ToLower(arg)
	for _, e := range endpoints {
		if strings.HasPrefix(e.StableID, arg) {
			return e
		}
	}
	return nil
}

// hostOf picks the dial host for an endpoint: the advertised LAN host
// when present, the raw browse host otherwise.
func hostOf(e *bridge.Endpoint) string {
	if e.LANHost != "" {
		return e.LANHost
	}
	return e.Host
}
