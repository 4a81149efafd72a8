package offline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// State is the lifecycle state of the cache manager's newest version.
type State int

const (
	// StateIdle: no version installed yet.
	StateIdle State = iota
	// StateInstalling: a new version's bucket is being populated.
	StateInstalling
	// StateInstalled: a new version is populated and waiting to take over.
	StateInstalled
	// StateActivating: the waiting version is claiming control.
	StateActivating
	// StateActive: one version is current and serving.
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// DefaultBucketPrefix is the fallback cache bucket name prefix.
const DefaultBucketPrefix = "blood-pressure-diary"

const vendorFetchLimit = 16 << 20 // per-script cap for vendor downloads

// Manager owns the versioned cache lifecycle. Install populates a new
// version's bucket all-or-nothing; Activate prunes every other bucket and
// swaps the served-bucket pointer so in-flight clients pick up the new
// version immediately; SkipWaiting promotes a waiting version on demand.
//
// A WaitGroup tracks in-flight install/activate chains; Close blocks until
// they resolve, so shutdown never interrupts a half-populated install.
type Manager struct {
	store    *Store
	assets   AssetSource
	manifest Manifest

	prefix       string
	client       *http.Client
	logger       *slog.Logger
	autoActivate bool
	onUpdate     func(bucket string)

	mu      sync.Mutex
	state   State
	current string // bucket serving requests
	waiting string // installed bucket not yet active

	wg sync.WaitGroup
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBucketPrefix overrides the cache bucket name prefix.
func WithBucketPrefix(prefix string) ManagerOption {
	return func(m *Manager) { m.prefix = prefix }
}

// WithHTTPClient sets the client used for vendor script downloads.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.client = c }
}

// WithAutoActivate makes every successful install activate immediately
// instead of waiting for an explicit skip-waiting signal.
func WithAutoActivate(on bool) ManagerOption {
	return func(m *Manager) { m.autoActivate = on }
}

// WithUpdateCallback registers a callback invoked when a new version
// reaches the waiting state.
func WithUpdateCallback(cb func(bucket string)) ManagerOption {
	return func(m *Manager) { m.onUpdate = cb }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a cache manager over store and assets.
func NewManager(store *Store, assets AssetSource, manifest Manifest, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		assets:   assets,
		manifest: manifest,
		prefix:   DefaultBucketPrefix,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   slog.Default(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CurrentBucket returns the bucket serving requests, or "".
func (m *Manager) CurrentBucket() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// WaitingBucket returns the installed-but-not-active bucket, or "".
func (m *Manager) WaitingBucket() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

// State returns the manager's lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Install fingerprints the manifest and, when the resulting version is not
// already installed, populates its bucket. The population is
// all-or-nothing: every manifest resource is fetched into memory first,
// and any failure aborts the install with no bucket left behind — the
// previous version keeps serving. Returns the bucket name.
func (m *Manager) Install(ctx context.Context) (string, error) {
	m.wg.Add(1)
	defer m.wg.Done()

	fingerprint, err := m.manifest.Fingerprint(m.assets)
	if err != nil {
		return "", err
	}
	bucket := BucketName(m.prefix, fingerprint)

	m.mu.Lock()
	if bucket == m.current || bucket == m.waiting {
		m.mu.Unlock()
		return bucket, nil
	}
	prevState := m.state
	m.state = StateInstalling
	m.mu.Unlock()

	m.logger.Info("offline: installing", slog.String("bucket", bucket))

	revert := func() {
		m.mu.Lock()
		m.state = prevState
		m.mu.Unlock()
	}

	entries, err := m.collectEntries(ctx)
	if err != nil {
		revert()
		return "", fmt.Errorf("offline: install %s: %w", bucket, err)
	}

	if err := m.store.PutAll(bucket, entries); err != nil {
		// A transaction failure should leave nothing, but clear any
		// partial bucket defensively before reporting.
		_ = m.store.DeleteBucket(bucket)
		revert()
		return "", fmt.Errorf("offline: install %s: %w", bucket, err)
	}

	m.mu.Lock()
	m.waiting = bucket
	m.state = StateInstalled
	hasCurrent := m.current != ""
	m.mu.Unlock()

	m.logger.Info("offline: installed", slog.String("bucket", bucket), slog.Int("entries", len(entries)))

	if !hasCurrent || m.autoActivate {
		// First install, or fast-activate configured: skip the waiting
		// grace period.
		if err := m.Activate(ctx); err != nil {
			return bucket, err
		}
		return bucket, nil
	}

	if m.onUpdate != nil {
		m.onUpdate(bucket)
	}
	return bucket, nil
}

// collectEntries fetches every manifest resource. The whole batch either
// succeeds or the install fails.
func (m *Manager) collectEntries(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(m.manifest.StaticPaths)+len(m.manifest.Vendor))
	for _, path := range m.manifest.StaticPaths {
		e, err := m.assets.Fetch(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	for _, v := range m.manifest.Vendor {
		e, err := m.fetchVendor(ctx, v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// fetchVendor downloads one third-party script.
func (m *Manager) fetchVendor(ctx context.Context, v VendorScript) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("vendor %s: %w", v.Name, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("vendor %s: %w", v.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("vendor %s: unexpected status %d", v.Name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, vendorFetchLimit))
	if err != nil {
		return Entry{}, fmt.Errorf("vendor %s: read body: %w", v.Name, err)
	}

	header := http.Header{}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}
	return Entry{URL: VendorPath(v.Name), Status: http.StatusOK, Header: header, Body: body}, nil
}

// Activate promotes the waiting version: every bucket other than it is
// deleted (no partial retention, no rollback), then the served-bucket
// pointer swaps so all clients use the new version for subsequent
// requests without a reload.
func (m *Manager) Activate(_ context.Context) error {
	m.wg.Add(1)
	defer m.wg.Done()

	m.mu.Lock()
	if m.waiting == "" {
		m.mu.Unlock()
		return nil
	}
	next := m.waiting
	m.state = StateActivating
	m.mu.Unlock()

	pruned, err := m.store.PruneExcept(next)
	if err != nil {
		m.mu.Lock()
		m.state = StateInstalled
		m.mu.Unlock()
		return fmt.Errorf("offline: activate %s: %w", next, err)
	}
	for _, b := range pruned {
		m.logger.Info("offline: pruned old cache", slog.String("bucket", b))
	}

	m.mu.Lock()
	m.current = next
	m.waiting = ""
	m.state = StateActive
	m.mu.Unlock()

	m.logger.Info("offline: activated", slog.String("bucket", next))
	return nil
}

// SkipWaiting promotes a waiting version immediately. Returns false when
// no version is waiting.
func (m *Manager) SkipWaiting(ctx context.Context) (bool, error) {
	if m.WaitingBucket() == "" {
		return false, nil
	}
	if err := m.Activate(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close waits for in-flight install/activate chains to resolve.
func (m *Manager) Close() {
	m.wg.Wait()
}
