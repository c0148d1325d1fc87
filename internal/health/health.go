package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/runtime"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/template"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

// Status represents the health of one component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusSkipped   Status = "skipped"

	// DialTimeout bounds the completion service reachability check.
	DialTimeout = 3 * time.Second
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// CheckOptions holds the components to check.
type CheckOptions struct {
	Store     store.Store
	Runtime   runtime.Runtime
	Templates template.Provider

	// Commands are the install and start argv; their executables are
	// looked up on PATH for the local runtime
	Commands [][]string

	CompletionURL string

	// Now anchors the "last saved" age; zero means time.Now
	Now time.Time
}

// Report holds the results of Check in a fixed order.
type Report struct {
	Results []Result
}

// Summary returns the worst status in the report.
func (r *Report) Summary() Status {
	summary := StatusHealthy
	for _, res := range r.Results {
		switch res.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			summary = StatusDegraded
		}
	}
	return summary
}

// Check runs every check.
func Check(ctx context.Context, opts CheckOptions) *Report {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Report{Results: []Result{
		checkStoreAt(ctx, opts.Store, now),
		CheckRuntime(ctx, opts.Runtime, opts.Commands),
		CheckTemplates(ctx, opts.Templates),
		CheckCompletion(ctx, opts.CompletionURL),
	}}
}

// CheckStore lists the stored workspaces.
func CheckStore(ctx context.Context, s store.Store) Result {
	return checkStoreAt(ctx, s, time.Now())
}

func checkStoreAt(ctx context.Context, s store.Store, now time.Time) Result {
	res := Result{Name: "store"}
	if s == nil {
		res.Status, res.Detail = StatusUnhealthy, "not open"
		return res
	}

	entries, err := s.List(ctx)
	if err != nil {
		res.Status, res.Detail = StatusUnhealthy, err.Error()
		return res
	}

	res.Status = StatusHealthy
	res.Detail = fmt.Sprintf("%d workspaces", len(entries))
	var last time.Time
	for _, e := range entries {
		if e.UpdatedAt.After(last) {
			last = e.UpdatedAt
		}
	}
	if !last.IsZero() {
		res.Detail += ", last saved " + formatDuration(now.Sub(last)) + " ago"
	}
	return res
}

// CheckRuntime boots and tears down a sandbox. For the local runtime the
// command executables must also be on PATH.
func CheckRuntime(ctx context.Context, rt runtime.Runtime, commands [][]string) Result {
	res := Result{Name: "runtime"}
	if rt == nil {
		res.Status, res.Detail = StatusUnhealthy, "no sandbox runtime available"
		return res
	}

	if rt.Name() == string(runtime.RuntimeLocal) {
		var missing []string
		for _, argv := range commands {
			if len(argv) == 0 {
				continue
			}
			if _, err := exec.LookPath(argv[0]); err != nil {
				missing = append(missing, argv[0])
			}
		}
		if len(missing) > 0 {
			res.Status = StatusUnhealthy
			res.Detail = "not on PATH: " + strings.Join(missing, ", ")
			return res
		}
	}

	start := time.Now()
	h, err := rt.Boot(ctx)
	if err != nil {
		res.Status, res.Detail = StatusUnhealthy, "boot failed: "+err.Error()
		return res
	}
	if err := h.Teardown(); err != nil {
		res.Status, res.Detail = StatusUnhealthy, "teardown failed: "+err.Error()
		return res
	}

	res.Status = StatusHealthy
	res.Detail = fmt.Sprintf("%s, boot %s", rt.Name(), time.Since(start).Round(time.Millisecond))
	return res
}

// CheckTemplates materializes every template the provider knows.
func CheckTemplates(ctx context.Context, p template.Provider) Result {
	res := Result{Name: "templates"}
	if p == nil {
		res.Status, res.Detail = StatusSkipped, "no template provider"
		return res
	}

	keys := p.Keys()
	sort.Strings(keys)
	if len(keys) == 0 {
		res.Status, res.Detail = StatusDegraded, "no templates configured"
		return res
	}

	var broken []string
	for _, key := range keys {
		root, err := p.Materialize(ctx, key)
		if err != nil {
			broken = append(broken, key)
			continue
		}
		if files, _ := tree.Count(root); files == 0 {
			broken = append(broken, key)
		}
	}

	switch {
	case len(broken) == len(keys):
		res.Status = StatusUnhealthy
	case len(broken) > 0:
		res.Status = StatusDegraded
	default:
		res.Status = StatusHealthy
	}
	res.Detail = fmt.Sprintf("%d of %d usable", len(keys)-len(broken), len(keys))
	if len(broken) > 0 {
		res.Detail += " (broken: " + strings.Join(broken, ", ") + ")"
	}
	return res
}

// CheckCompletion dials the completion service host.
func CheckCompletion(ctx context.Context, rawURL string) Result {
	res := Result{Name: "completion"}
	if rawURL == "" {
		res.Status, res.Detail = StatusSkipped, "no service configured"
		return res
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		res.Status, res.Detail = StatusDegraded, fmt.Sprintf("invalid url %q", rawURL)
		return res
	}
	addr := u.Host
	if u.Port() == "" {
		port := "80"
		if u.Scheme == "https" {
			port = "443"
		}
		addr = net.JoinHostPort(u.Hostname(), port)
	}

	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		res.Status, res.Detail = StatusDegraded, "unreachable: "+err.Error()
		return res
	}
	_ = conn.Close()

	res.Status, res.Detail = StatusHealthy, addr
	return res
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
