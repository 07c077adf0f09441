package factory

import (
	"fmt"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
)

// CleanupOptions maps the cleanup section onto core.CleanupOptions
func CleanupOptions(cfg *config.Config) (core.CleanupOptions, error) {
	cc := cfg.GetCleanup()

	mode := core.CleanupMode(cc.Mode)
	switch mode {
	case core.ModeAuto, core.ModeQuery, core.ModeClassify:
	default:
		return core.CleanupOptions{}, fmt.Errorf("unsupported cleanup mode: %s", cc.Mode)
	}

	strategy := core.DeleteStrategy(cc.DeleteStrategy)
	switch strategy {
	case core.StrategyTrash, core.StrategyBatch:
	default:
		return core.CleanupOptions{}, fmt.Errorf("unsupported delete strategy: %s", cc.DeleteStrategy)
	}

	return core.CleanupOptions{
		Mode:             mode,
		DeleteStrategy:   strategy,
		PageSize:         cc.PageSize,
		PageDelay:        cc.PageDelay,
		UnsubscribeDelay: cc.UnsubscribeDelay,
		PreviewSize:      cc.PreviewSize,
		BatchSize:        cc.BatchSize,
		ProgressEvery:    cc.ProgressEvery,
		DryRun:           cc.DryRun,
	}, nil
}
