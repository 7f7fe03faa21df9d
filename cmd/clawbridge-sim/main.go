// Command clawbridge-sim simulates a bridge: it advertises itself over
// DNS-SD and answers the hello/pair handshake, issuing HKDF-derived
// tokens. Use it to exercise openclaw-node without a real gateway.
//
// Usage:
//
//	clawbridge-sim [flags]
//
// Flags:
//
//	-name string          Advertised display name (default "Simulated Bridge")
//	-port int             TCP port to listen and advertise on (default 18789)
//	-lan-host string      Advertised LAN hostname (default: os hostname)
//	-tailnet-dns string   Advertised tailnet DNS name
//	-secret string        Token derivation secret (default "clawbridge-sim")
//	-open                 Accept any hello without requiring pairing
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  CBOR protocol event log file
//
// Examples:
//
//	# Advertise and require pairing
//	clawbridge-sim -name "Office Bridge"
//
//	# Accept any node without pairing, log the protocol
//	clawbridge-sim -open -protocol-log bridge.clog
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/tualatrix/openclaw/pkg/bridge"
	"github.com/tualatrix/openclaw/pkg/discovery"
	"github.com/tualatrix/openclaw/pkg/log"
	"github.com/tualatrix/openclaw/pkg/pairing"
)

type flags struct {
	Name        string
	Port        int
	LANHost     string
	TailnetDNS  string
	Secret      string
	Open        bool
	LogLevel    string
	ProtocolLog string
}

var opts flags

func init() {
	flag.StringVar(&opts.Name, "name", "Simulated Bridge", "Advertised display name")
	flag.IntVar(&opts.Port, "port", bridge.DefaultPort, "TCP port to listen and advertise on")
	flag.StringVar(&opts.LANHost, "lan-host", "", "Advertised LAN hostname")
	flag.StringVar(&opts.TailnetDNS, "tailnet-dns", "", "Advertised tailnet DNS name")
	flag.StringVar(&opts.Secret, "secret", "clawbridge-sim", "Token derivation secret")
	flag.BoolVar(&opts.Open, "open", false, "Accept any hello without requiring pairing")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.ProtocolLog, "protocol-log", "", "CBOR protocol event log file")
}

func main() {
	flag.Parse()

	logger := setupLogging(opts.LogLevel)

	plog, closeLog := setupProtocolLog(logger)
	defer closeLog()

	lanHost := opts.LANHost
	if lanHost == "" {
		lanHost, _ = os.Hostname()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		logger.Error("listen", "port", opts.Port, "error", err)
		os.Exit(1)
	}

	server := pairing.NewServer(pairing.ServerConfig{
		ServerName:  opts.Name,
		Secret:      []byte(opts.Secret),
		OpenPairing: opts.Open,
		Logger:      plog,
	})

	advertiser := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{})
	err = advertiser.Advertise(opts.Name, opts.Port, &bridge.TXTInfo{
		DisplayName: opts.Name,
		LANHost:     lanHost,
		TailnetDNS:  opts.TailnetDNS,
		GatewayPort: opts.Port,
	})
	if err != nil {
		logger.Error("advertise", "error", err)
		os.Exit(1)
	}
	defer advertiser.Stop()

	logger.Info("bridge simulator running",
		"name", opts.Name, "port", opts.Port, "lan_host", lanHost, "open", opts.Open)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("serve", "error", err)
		}
	}

	logger.Info("shutting down")
	_ = server.Close()
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

func setupProtocolLog(logger *slog.Logger) (log.Logger, func()) {
	loggers := []log.Logger{log.NewSlogAdapter(logger)}

	closeFn := func() {}
	if opts.ProtocolLog != "" {
		fl, err := log.NewFileLogger(opts.ProtocolLog)
		if err != nil {
			logger.Warn("open protocol log", "path", opts.ProtocolLog, "error", err)
		} else {
			loggers = append(loggers, fl)
			closeFn = func() { _ = fl.Close() }
		}
	}

	return log.NewMultiLogger(loggers...), closeFn
}
