package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adaptivepow/core/apowerr"
	"github.com/adaptivepow/core/applog"
	"github.com/adaptivepow/core/batch"
	"github.com/adaptivepow/core/device"
	"github.com/adaptivepow/core/epoch"
	"github.com/adaptivepow/core/job"
)

// Version is the released version string of the miner core.
var Version = "0.1-Dev"

// genesisTime anchors epoch numbering. A real deployment would read this
// from the chain it mines against; the harness fixes a placeholder so
// the end-to-end wiring below is reproducible.
const genesisTime int64 = 1609459200 // 2021-01-01T00:00:00Z

func main() {
	printVersion := flag.Bool("v", false, "Show version and exit")
	useCPU := flag.Bool("cpu", false, "Use the CPU-reference backend instead of OpenCL")
	intensity := flag.Int("I", 20, "Intensity (parsed but unused: every batch searches 2^21 nonces)")
	excludedGPUs := flag.String("E", "", "Exclude devices: comma separated list of device numbers")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if *printVersion {
		fmt.Println("adaptivepow-core version", Version)
		os.Exit(0)
	}

	log := applog.New("main", *logLevel)
	_ = intensity // unused: RunBatch always dispatches batch.BatchSize nonces, on every backend

	backend, info, err := selectBackend(log, *useCPU, *excludedGPUs)
	if err != nil {
		log.Error("no usable device", "error", err)
		os.Exit(1)
	}
	log.Info("selected device", "name", info.Name)

	if err := backend.Init(); err != nil {
		log.Error("backend init failed", "error", err)
		os.Exit(1)
	}
	defer backend.Cleanup()

	driver := batch.NewDriver()
	ctx := context.Background()

	if err := runDataset(ctx, log, driver, backend, time.Now().Unix()); err != nil {
		log.Error("dataset generation failed", "error", err)
		os.Exit(1)
	}

	// No stratum/pool client is wired here (out of scope); the harness
	// demonstrates the pipeline against a synthetic job so a reader can
	// see a device context run end to end.
	demoJob := job.MiningJob{
		JobID:  "demo",
		NTime:  uint32(time.Now().Unix()),
		NBits:  0x1f00ffff,
		Target: job.BitsToTarget(0x1f00ffff),
	}
	if err := driver.SubmitJob(demoJob); err != nil {
		log.Error("submit job failed", "error", err)
		os.Exit(1)
	}

	for i := 0; i < 8; i++ {
		start := time.Now()
		report, err := driver.RunBatch(ctx, backend)
		if err != nil {
			log.Error("batch failed", "error", err)
			continue
		}
		elapsed := time.Since(start).Seconds()
		hashrate := float64(report.TotalHashes) / elapsed / 1e6
		log.Info("batch complete", "hashes", report.TotalHashes, "accepted", len(report.Accepted), "mh_per_s", hashrate)
		for _, result := range report.Accepted {
			log.Info("solution found", "job_id", result.JobID, "nonce", result.Nonce)
		}
	}

	stats := driver.Stats()
	fmt.Printf("total hashes: %d, accepted: %d, rejected: %d, hashrate: %.2f MH/s\n",
		stats.TotalHashes, stats.Accepted, stats.Rejected, stats.Hashrate/1e6)
}

func runDataset(ctx context.Context, log *applog.Logger, driver *batch.Driver, backend device.Backend, now int64) error {
	e := epoch.Number(now, genesisTime)
	if err := driver.BeginDatasetGeneration(e); err != nil {
		return err
	}
	seed := epoch.Seed(e)
	dag, _, err := backend.GenerateDataset(ctx, e, seed, epoch.CacheItems(e), epoch.DagItems(e))
	if err != nil {
		driver.FailDatasetGeneration()
		return err
	}
	log.Info("dataset ready", "epoch", e, "dag_items", dag.Items())
	driver.CompleteDatasetGeneration(e, dag)
	return nil
}

func selectBackend(log *applog.Logger, useCPU bool, excludedGPUs string) (device.Backend, device.Info, error) {
	if useCPU {
		b := device.NewCPUReference(log, 0)
		return b, b.Info(), nil
	}

	excluded := parseExcludedList(excludedGPUs)
	devices, err := device.EnumerateOpenCL(log, false)
	if err != nil {
		log.Warn("falling back to cpu-reference backend", "error", err)
		b := device.NewCPUReference(log, 0)
		return b, b.Info(), nil
	}
	for i, clDevice := range devices {
		if device.Excluded(i, excluded) {
			continue
		}
		b := device.NewOpenCL(log, clDevice)
		return b, b.Info(), nil
	}
	return nil, device.Info{}, apowerr.New(apowerr.NoSuchDevice, "every enumerated device was excluded")
}

func parseExcludedList(excludedGPUs string) []int {
	if excludedGPUs == "" {
		return nil
	}
	parts := strings.Split(excludedGPUs, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}
