// Package traffic controls which slot receives live requests, both the
// all-or-nothing blue-green switch and weighted canary splits.
package traffic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yukyudata/deployops/internal/deployer"
	"github.com/yukyudata/deployops/internal/model"
)

// Router shifts traffic between the two slots. SetWeight with percent 0
// reverts a canary entirely to the active slot; that revert is the canary
// rollback and is distinct from the container-level rollback path.
type Router interface {
	SwitchTo(ctx context.Context, c model.Color) error
	SetWeight(ctx context.Context, active, canary model.Color, percent int) error
}

// UpstreamRouter renders the front proxy's upstream config file and reloads
// the proxy. The config write is temp-then-rename so the proxy never reads a
// half-written file.
type UpstreamRouter struct {
	confPath string
	reload   func(ctx context.Context) error
}

// NewUpstreamRouter wires the router to a proxy container managed by the
// given deployer.
func NewUpstreamRouter(confDir, proxyContainer string, d deployer.Deployer) *UpstreamRouter {
	return &UpstreamRouter{
		confPath: filepath.Join(confDir, "yukyudata.conf"),
		reload: func(ctx context.Context) error {
			res, err := d.ExecInContainer(ctx, proxyContainer, []string{"nginx", "-s", "reload"})
			if err != nil {
				return fmt.Errorf("reload proxy %s: %w", proxyContainer, err)
			}
			if res.ExitCode != 0 {
				return fmt.Errorf("reload proxy %s: exit %d: %s", proxyContainer, res.ExitCode, res.Stderr)
			}
			return nil
		},
	}
}

// newRouterWithReload is the test seam.
func newRouterWithReload(confPath string, reload func(ctx context.Context) error) *UpstreamRouter {
	return &UpstreamRouter{confPath: confPath, reload: reload}
}

// SwitchTo routes 100% of traffic to slot c.
func (r *UpstreamRouter) SwitchTo(ctx context.Context, c model.Color) error {
	if !c.Valid() {
		return fmt.Errorf("invalid slot color %q", c)
	}
	conf := fmt.Sprintf(
		"upstream yukyudata {\n    server 127.0.0.1:%d; # %s\n}\n",
		model.SlotPort(c), c,
	)
	return r.apply(ctx, conf)
}

// SetWeight splits traffic between the active slot and the canary slot.
func (r *UpstreamRouter) SetWeight(ctx context.Context, active, canary model.Color, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("canary weight %d out of range", percent)
	}
	if !active.Valid() || !canary.Valid() {
		return fmt.Errorf("invalid slot pair %q/%q", active, canary)
	}

	switch percent {
	case 0:
		return r.SwitchTo(ctx, active)
	case 100:
		return r.SwitchTo(ctx, canary)
	}

	conf := fmt.Sprintf(
		"upstream yukyudata {\n    server 127.0.0.1:%d weight=%d; # %s\n    server 127.0.0.1:%d weight=%d; # %s canary\n}\n",
		model.SlotPort(active), 100-percent, active,
		model.SlotPort(canary), percent, canary,
	)
	return r.apply(ctx, conf)
}

func (r *UpstreamRouter) apply(ctx context.Context, conf string) error {
	dir := filepath.Dir(r.confPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upstream conf dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upstream-*")
	if err != nil {
		return fmt.Errorf("create upstream temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(conf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write upstream conf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close upstream conf: %w", err)
	}
	if err := os.Rename(tmpName, r.confPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit upstream conf: %w", err)
	}

	return r.reload(ctx)
}
