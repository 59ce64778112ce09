package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_store_ops_total",
		Help: "Completed store operations by type.",
	}, []string{"op"})

	opsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_store_ops_failed_total",
		Help: "Failed store operations by type.",
	}, []string{"op"})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "chatrelay_store_disk_bytes",
		Help: "Best-effort on-disk size of the store directory.",
	}, func() float64 { return float64(DiskUsage()) })
)

// DiskUsage returns the best-effort total size in bytes of the DB directory.
func DiskUsage() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total
}
