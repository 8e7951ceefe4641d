// Package discovery announces a running chat API server on the local
// network and finds servers announced by other installs, so a client can
// join a shared LAN server instead of its own embedded one.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultService is the mDNS service name without domain suffix.
	DefaultService = "_gochat-api._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultVersion is the TXT record protocol version.
	DefaultVersion = 1
	// DefaultAPIPath is the path prefix the announced server mounts the
	// API under.
	DefaultAPIPath = "/api"
	// DefaultRefreshInterval is the background server discovery interval.
	DefaultRefreshInterval = 10 * time.Second
	// DefaultScanTimeout bounds each discovery scan.
	DefaultScanTimeout = 3 * time.Second
)

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Config controls mDNS announcement and scanning behavior.
type Config struct {
	Service         string
	Domain          string
	Version         int
	APIPath         string
	RefreshInterval time.Duration
	ScanTimeout     time.Duration

	// SelfInstallID identifies this install; the scanner filters its own
	// announcement out of results.
	SelfInstallID string
	// InstanceName is the human-readable name shown to other installs.
	InstanceName string
	// APIPort is the port the announced server listens on.
	APIPort int

	registerFn registerFunc
	browseFn   browseFunc
}

func (c Config) withDefaults() Config {
	out := c
	if out.Service == "" {
		out.Service = DefaultService
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.Version == 0 {
		out.Version = DefaultVersion
	}
	if out.APIPath == "" {
		out.APIPath = DefaultAPIPath
	}
	if out.RefreshInterval <= 0 {
		out.RefreshInterval = DefaultRefreshInterval
	}
	if out.ScanTimeout <= 0 {
		out.ScanTimeout = DefaultScanTimeout
	}
	if out.registerFn == nil {
		out.registerFn = zeroconf.Register
	}
	return out
}

func (c Config) validateForAnnounce() error {
	if strings.TrimSpace(c.SelfInstallID) == "" {
		return errors.New("self install ID is required")
	}
	if strings.TrimSpace(c.InstanceName) == "" {
		return errors.New("instance name is required")
	}
	if c.APIPort <= 0 {
		return errors.New("API port must be > 0")
	}
	return nil
}

func (c Config) validateForScan() error {
	if strings.TrimSpace(c.SelfInstallID) == "" {
		return errors.New("self install ID is required")
	}
	return nil
}

// Announcer advertises the local API server via mDNS.
type Announcer struct {
	server *zeroconf.Server
}

// StartAnnouncer registers and starts the mDNS announcement.
func StartAnnouncer(config Config) (*Announcer, error) {
	cfg := config.withDefaults()
	if err := cfg.validateForAnnounce(); err != nil {
		return nil, err
	}

	txt := []string{
		"install_id=" + cfg.SelfInstallID,
		"version=" + strconv.Itoa(cfg.Version),
		"api_path=" + cfg.APIPath,
	}

	server, err := cfg.registerFn(cfg.InstanceName, cfg.Service, cfg.Domain, cfg.APIPort, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service: %w", err)
	}

	return &Announcer{server: server}, nil
}

// Stop withdraws the announcement.
func (a *Announcer) Stop() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

// Service coordinates the announcement and the server scanner.
type Service struct {
	Announcer *Announcer
	Scanner   *ServerScanner
}

// Start starts announcer and scanner using one config.
func Start(config Config) (*Service, error) {
	cfg := config.withDefaults()

	announcer, err := StartAnnouncer(cfg)
	if err != nil {
		return nil, err
	}

	scanner, err := NewServerScanner(cfg)
	if err != nil {
		announcer.Stop()
		return nil, err
	}
	if err := scanner.Start(); err != nil {
		announcer.Stop()
		return nil, err
	}

	return &Service{
		Announcer: announcer,
		Scanner:   scanner,
	}, nil
}

// Stop stops scanner and announcer.
func (s *Service) Stop() {
	if s == nil {
		return
	}
	if s.Scanner != nil {
		s.Scanner.Stop()
	}
	if s.Announcer != nil {
		s.Announcer.Stop()
	}
}
