// Command openclaw-node is a companion node: it discovers bridges on
// the local network and tailnet, pairs with a chosen one and resolves
// the gateway control endpoint.
//
// Usage:
//
//	openclaw-node [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-display-name string  Device name sent in hello and used for self-filtering
//	-tailnet-domain string  Extra browse domain besides .local
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  CBOR protocol event log file
//	-interactive          Enable interactive command mode
//	-store string         Credential store file path
//	-reset                Clear the credential store before starting
//
// Examples:
//
//	# Browse and pair interactively
//	openclaw-node -display-name "My Desktop" -interactive
//
//	# Also browse a tailnet domain, with protocol logging
//	openclaw-node -tailnet-domain example.ts.net -protocol-log node.clog -interactive
//
// Interactive Commands:
//
//	list        - List discovered bridges
//	discover    - Restart the bridge search
//	pair <n>    - Pair with a discovered bridge
//	forget <n>  - Drop the stored token for a bridge
//	status      - Show discovery, endpoint and link state
//	mode <m>    - Set connection mode: local, remote, unconfigured
//	config      - Resolve the control endpoint (requireConfig)
//	tunnel      - Establish the remote control tunnel
//	connect     - Connect the control link
//	identity    - Show local identity tokens
//	quit        - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/tualatrix/openclaw/cmd/openclaw-node/interactive"
	"github.com/tualatrix/openclaw/pkg/bridge"
	"github.com/tualatrix/openclaw/pkg/config"
	"github.com/tualatrix/openclaw/pkg/connection"
	"github.com/tualatrix/openclaw/pkg/credstore"
	"github.com/tualatrix/openclaw/pkg/discovery"
	"github.com/tualatrix/openclaw/pkg/gateway"
	"github.com/tualatrix/openclaw/pkg/identity"
	"github.com/tualatrix/openclaw/pkg/log"
	"github.com/tualatrix/openclaw/pkg/pairing"
)

type flags struct {
	ConfigFile    string
	DisplayName   string
	TailnetDomain string
	LogLevel      string
	ProtocolLog   string
	Interactive   bool
	StorePath     string
	Reset         bool
}

var opts flags

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&opts.DisplayName, "display-name", "", "Device name sent in hello")
	flag.StringVar(&opts.TailnetDomain, "tailnet-domain", "", "Extra browse domain besides .local")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.ProtocolLog, "protocol-log", "", "CBOR protocol event log file")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Enable interactive command mode")
	flag.StringVar(&opts.StorePath, "store", "", "Credential store file path")
	flag.BoolVar(&opts.Reset, "reset", false, "Clear the credential store before starting")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger := setupLogging(cfg.Log.Level)

	if opts.Reset && cfg.Storage.Path != "" {
		if err := os.Remove(cfg.Storage.Path); err != nil && !os.IsNotExist(err) {
			logger.Warn("reset credential store", "error", err)
		}
	}

	store, err := credstore.NewFileStore(cfg.Storage.Path)
	if err != nil {
		logger.Error("open credential store", "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}

	// Reconcile the legacy store: present values fill empty slots in
	// the other store, nothing is overwritten.
	if cfg.Storage.LegacyPath != "" {
		legacy, err := credstore.NewFileStore(cfg.Storage.LegacyPath)
		if err != nil {
			logger.Warn("open legacy store", "path", cfg.Storage.LegacyPath, "error", err)
		} else if err := credstore.Reconcile(store, legacy, credstore.BootstrapKeys); err != nil {
			logger.Warn("reconcile stores", "error", err)
		}
	}

	nodeID, err := identity.EnsureNodeID(store)
	if err != nil {
		logger.Error("ensure node id", "error", err)
		os.Exit(1)
	}
	logger.Info("node identity", "node_id", nodeID)

	plog, closeLog := setupProtocolLog(cfg, logger)
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fast identity pass now, slow resolution pass in the background.
	local := identity.NewLocal(cfg.Node.DisplayName)
	go local.Resolve(ctx)

	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{
		Interface: cfg.Discovery.Interface,
	})
	engine := discovery.NewEngine(discovery.EngineConfig{
		Domains: cfg.Domains(),
		Logger:  plog,
	}, browser, browser, local)

	engine.OnChange(func(endpoints []*bridge.Endpoint, status string) {
		logger.Debug("discovery update", "bridges", len(endpoints), "status", status)
	})

	resolver := gateway.NewResolver(gateway.ResolverConfig{
		LocalPort:        cfg.Gateway.LocalPort,
		TokenOverride:    config.TokenOverride(),
		PasswordOverride: config.PasswordOverride(),
		RemotePassword:   cfg.Gateway.Remote.Password,
		LocalPassword:    cfg.Gateway.Auth.Password,
		Logger:           plog,
	}, store, gateway.NoTunnel{})

	client := pairing.NewClient(pairing.ClientConfig{Logger: plog})

	link := connection.NewLink(resolver, dialControl, connection.LinkConfig{Logger: plog})
	defer link.Close()

	if err := engine.Start(); err != nil {
		logger.Error("start discovery", "error", err)
		os.Exit(1)
	}
	defer engine.Stop()
	logger.Info("discovery started", "domains", cfg.Domains())

	if opts.Interactive {
		node, err := interactive.New(interactive.Deps{
			Engine:      engine,
			Resolver:    resolver,
			Client:      client,
			Link:        link,
			Store:       store,
			Local:       local,
			NodeID:      nodeID,
			DisplayName: cfg.Node.DisplayName,
		})
		if err != nil {
			logger.Error("interactive mode", "error", err)
			os.Exit(1)
		}
		go node.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")
}

// dialControl verifies the resolved control endpoint accepts a TCP
// connection. The application protocol attaches on top of the
// supervisor; connection loss is reported via NotifyConnectionLost.
func dialControl(ctx context.Context, endpoint gateway.State) error {
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return fmt.Errorf("control endpoint %q: %w", endpoint.URL, err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return err
	}
	return conn.Close()
}

// applyFlags layers command-line flags over the config file.
func applyFlags(cfg *config.Config) {
	if opts.DisplayName != "" {
		cfg.Node.DisplayName = opts.DisplayName
	}
	if opts.TailnetDomain != "" {
		cfg.Discovery.TailnetDomain = opts.TailnetDomain
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.ProtocolLog != "" {
		cfg.Log.ProtocolPath = opts.ProtocolLog
	}
	if opts.StorePath != "" {
		cfg.Storage.Path = opts.StorePath
	}
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// setupProtocolLog builds the protocol event logger: CBOR file when
// configured, mirrored to slog at debug level.
func setupProtocolLog(cfg *config.Config, logger *slog.Logger) (log.Logger, func()) {
	loggers := []log.Logger{log.NewSlogAdapter(logger)}

	closeFn := func() {}
	if cfg.Log.ProtocolPath != "" {
		fl, err := log.NewFileLogger(cfg.Log.ProtocolPath)
		if err != nil {
			logger.Warn("open protocol log", "path", cfg.Log.ProtocolPath, "error", err)
		} else {
			loggers = append(loggers, fl)
			closeFn = func() { _ = fl.Close() }
		}
	}

	return log.NewMultiLogger(loggers...), closeFn
}
