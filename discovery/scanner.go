package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// EventServerUpserted is emitted when a server appears or its
	// metadata changes.
	EventServerUpserted EventType = "server_upserted"
	// EventServerRemoved is emitted when a previously seen server
	// disappears.
	EventServerRemoved EventType = "server_removed"
)

// EventType identifies discovery updates.
type EventType string

// Event carries discovery updates for UI consumers.
type Event struct {
	Type   EventType
	Server DiscoveredServer
}

// DiscoveredServer is a chat API server announced on the LAN.
type DiscoveredServer struct {
	InstallID string
	Name      string
	Version   int
	APIPath   string
	HostName  string
	Port      int
	Addresses []string
	LastSeen  time.Time
}

// BaseURL builds the API base URL for the server's first address, or ""
// if no address was resolved.
func (d DiscoveredServer) BaseURL() string {
	if len(d.Addresses) == 0 || d.Port <= 0 {
		return ""
	}
	host := d.Addresses[0]
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	path := d.APIPath
	if path == "" {
		path = DefaultAPIPath
	}
	return fmt.Sprintf("http://%s:%d%s", host, d.Port, path)
}

type refreshRequest struct {
	ctx  context.Context
	done chan error
}

// ServerScanner discovers LAN servers with periodic and manual mDNS
// browse operations.
type ServerScanner struct {
	cfg Config

	browse browseFunc

	mu      sync.RWMutex
	servers map[string]DiscoveredServer

	events chan Event

	startOnce sync.Once
	stopOnce  sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	refreshRequests chan refreshRequest
}

// NewServerScanner creates a scanner with config defaults applied.
func NewServerScanner(config Config) (*ServerScanner, error) {
	cfg := config.withDefaults()
	if err := cfg.validateForScan(); err != nil {
		return nil, err
	}

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, err
		}
		browse = resolver.Browse
	}

	return &ServerScanner{
		cfg:             cfg,
		browse:          browse,
		servers:         make(map[string]DiscoveredServer),
		events:          make(chan Event, 128),
		refreshRequests: make(chan refreshRequest),
	}, nil
}

// Start begins background scanning.
func (s *ServerScanner) Start() error {
	s.startOnce.Do(func() {
		s.ctx, s.cancel = context.WithCancel(context.Background())
		s.wg.Add(1)
		go s.loop()
	})
	return nil
}

// Stop stops background scanning.
func (s *ServerScanner) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		close(s.events)
	})
}

// Events provides asynchronous discovery updates.
func (s *ServerScanner) Events() <-chan Event {
	return s.events
}

// Refresh triggers an immediate scan.
func (s *ServerScanner) Refresh(ctx context.Context) error {
	if s.ctx == nil {
		return errors.New("server scanner is not started")
	}

	req := refreshRequest{
		ctx:  ctx,
		done: make(chan error, 1),
	}

	select {
	case s.refreshRequests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("server scanner is stopped")
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.New("server scanner is stopped")
	}
}

// ListServers returns the current snapshot, sorted by name.
func (s *ServerScanner) ListServers() []DiscoveredServer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DiscoveredServer, 0, len(s.servers))
	for _, server := range s.servers {
		out = append(out, server)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].InstallID < out[j].InstallID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *ServerScanner) loop() {
	defer s.wg.Done()

	// Prime the list immediately.
	s.runScan(context.Background())

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runScan(context.Background())
		case req := <-s.refreshRequests:
			req.done <- s.runScan(req.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ServerScanner) runScan(requestCtx context.Context) error {
	scanCtx, cancel := context.WithTimeout(s.ctx, s.cfg.ScanTimeout)
	defer cancel()

	if requestCtx != nil {
		go func() {
			select {
			case <-requestCtx.Done():
				cancel()
			case <-scanCtx.Done():
			}
		}()
	}

	entries := make(chan *zeroconf.ServiceEntry, 32)
	collected := make(map[string]DiscoveredServer)
	var collectedMu sync.Mutex
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for {
			select {
			case <-scanCtx.Done():
				return
			case entry := <-entries:
				if entry == nil {
					continue
				}
				server, ok := parseEntry(entry, s.cfg.SelfInstallID)
				if !ok {
					continue
				}
				server.LastSeen = time.Now()
				collectedMu.Lock()
				collected[server.InstallID] = server
				collectedMu.Unlock()
			}
		}
	}()

	browseErr := s.browse(scanCtx, s.cfg.Service, s.cfg.Domain, entries)
	if browseErr != nil {
		return browseErr
	}

	<-scanCtx.Done()
	<-collectorDone
	collectedMu.Lock()
	next := collected
	collectedMu.Unlock()

	s.applySnapshot(next)

	// A timeout just means this scan window ended naturally.
	if err := scanCtx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *ServerScanner) applySnapshot(next map[string]DiscoveredServer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.servers
	s.servers = next

	for id, server := range next {
		old, exists := previous[id]
		if !exists || !serversEqual(old, server) {
			s.emitEvent(Event{Type: EventServerUpserted, Server: server})
		}
	}

	for id, server := range previous {
		if _, exists := next[id]; !exists {
			s.emitEvent(Event{Type: EventServerRemoved, Server: server})
		}
	}
}

func (s *ServerScanner) emitEvent(event Event) {
	select {
	case s.events <- event:
	default:
	}
}

func parseEntry(entry *zeroconf.ServiceEntry, selfInstallID string) (DiscoveredServer, bool) {
	txt := txtToMap(entry.Text)

	installID := strings.TrimSpace(txt["install_id"])
	if installID == "" || installID == selfInstallID {
		return DiscoveredServer{}, false
	}

	version := 0
	if txt["version"] != "" {
		if parsed, err := strconv.Atoi(txt["version"]); err == nil {
			version = parsed
		}
	}

	addresses := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	seen := make(map[string]struct{})
	for _, ip := range append(entry.AddrIPv4, entry.AddrIPv6...) {
		if ip == nil {
			continue
		}
		raw := ip.String()
		if raw == "" {
			continue
		}
		if _, exists := seen[raw]; exists {
			continue
		}
		seen[raw] = struct{}{}
		addresses = append(addresses, raw)
	}
	sort.Strings(addresses)

	name := strings.TrimSpace(entry.Instance)
	if name == "" {
		name = strings.TrimSpace(entry.HostName)
	}
	if name == "" {
		name = installID
	}

	return DiscoveredServer{
		InstallID: installID,
		Name:      name,
		Version:   version,
		APIPath:   strings.TrimSpace(txt["api_path"]),
		HostName:  entry.HostName,
		Port:      entry.Port,
		Addresses: addresses,
	}, true
}

func txtToMap(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, entry := range text {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(parts[1])
	}
	return out
}

func serversEqual(a, b DiscoveredServer) bool {
	if a.InstallID != b.InstallID ||
		a.Name != b.Name ||
		a.Version != b.Version ||
		a.APIPath != b.APIPath ||
		a.HostName != b.HostName ||
		a.Port != b.Port ||
		len(a.Addresses) != len(b.Addresses) {
		return false
	}
	for i := range a.Addresses {
		if a.Addresses[i] != b.Addresses[i] {
			return false
		}
	}
	return true
}
