package selector

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/bejglee/duplicate-finder/internal/config"
	"github.com/bejglee/duplicate-finder/internal/runctx"
	"github.com/bejglee/duplicate-finder/internal/types"
)

func newTestRunContext(strategy config.Strategy) *runctx.RunContext {
	return runctx.New(zap.NewNop().Sugar(), config.Config{Strategy: strategy})
}

func filesOfTotalSize(total int64) []*types.InputFile {
	return []*types.InputFile{{Size: total}}
}

func TestSelectForcedStrategyBypassesProbe(t *testing.T) {
	rc := newTestRunContext(config.StrategyDisk)
	d := Select(rc, filesOfTotalSize(1))
	if d.Strategy != config.StrategyDisk {
		t.Errorf("expected forced DISK, got %s", d.Strategy)
	}
}

func TestSelectPicksFastWhenCheap(t *testing.T) {
	restore := stubRAM(1 << 30, nil) // 1 GiB available
	defer restore()

	rc := newTestRunContext(config.StrategyAuto)
	d := Select(rc, filesOfTotalSize(1<<20)) // 1 MiB input
	if d.Strategy != config.StrategyFast {
		t.Errorf("expected FAST, got %s", d.Strategy)
	}
}

func TestSelectFallsBackToDiskWhenHuge(t *testing.T) {
	restore := stubRAM(1<<20, nil) // 1 MiB available
	defer restore()

	rc := newTestRunContext(config.StrategyAuto)
	d := Select(rc, filesOfTotalSize(10<<30)) // 10 GiB input
	if d.Strategy != config.StrategyDisk {
		t.Errorf("expected DISK, got %s", d.Strategy)
	}
}

func TestSelectFallsBackToSafeOnProbeFailure(t *testing.T) {
	restore := stubRAM(0, errors.New("probe unavailable"))
	defer restore()

	rc := newTestRunContext(config.StrategyAuto)
	d := Select(rc, filesOfTotalSize(1))
	if d.Strategy != config.StrategySafe {
		t.Errorf("expected SAFE fallback, got %s", d.Strategy)
	}
}

func stubRAM(available uint64, err error) func() {
	prev := ramAvailable
	ramAvailable = func() (uint64, error) { return available, err }
	return func() { ramAvailable = prev }
}
