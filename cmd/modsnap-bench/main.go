// Command modsnap-bench seeds an in-memory log and buffer pool with a
// synthetic page-edit workload, then fires a batch of reconstruction
// queries at the engine and reports cache hit rate and latency.
//
// Shutdown is signal-driven: SIGINT/SIGTERM cancels a context, and the
// workload loop checks it between phases, stopping early and reporting
// partial results if interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/luigitni/modsnap/commitmap"
	"github.com/luigitni/modsnap/external/memadapter"
	"github.com/luigitni/modsnap/internal/config"
	"github.com/luigitni/modsnap/internal/storage"
	"github.com/luigitni/modsnap/internal/telemetry"
	"github.com/luigitni/modsnap/logrecord"
	"github.com/luigitni/modsnap/lsn"
	"github.com/luigitni/modsnap/page"
	"github.com/luigitni/modsnap/reconstruct"
	"github.com/rs/zerolog"
)

func main() {
	pages := flag.Int("pages", 64, "number of distinct pages to seed")
	editsPerPage := flag.Int("edits-per-page", 8, "undo-chain length per page")
	inProgress := flag.Float64("in-progress-fraction", 0.1, "fraction of transactions left uncommitted")
	queries := flag.Int("queries", 2000, "number of reconstruction queries to issue")
	cacheCapacity := flag.Int("cache-capacity", 256, "version cache capacity")
	seed := flag.Int64("seed", 1, "random seed")
	verbose := flag.Bool("verbose", false, "enable debug-level logging")
	cpuProfile := flag.String("cpuprofile", "", "write a CPU profile to this path, the seed-and-query run only")
	flag.Parse()

	log := telemetry.New("modsnap-bench")
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}
	rng := rand.New(rand.NewSource(*seed))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	cfg := config.Default(config.WithCacheCapacity(*cacheCapacity))
	wal := memadapter.NewLog(log)
	pool := memadapter.NewBufferPool(cfg, log)
	commits := commitmap.New(log)
	engine := reconstruct.New(cfg, log, wal, pool, commits)
	codec := memadapter.Codec{}

	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warn().Msg("modsnap-bench: interrupted, wrapping up")
		cancel()
	}()

	workload := seedWorkload(ctx, wal, pool, commits, rng, *pages, *editsPerPage, *inProgress)
	if len(workload.keys) == 0 {
		fmt.Fprintln(os.Stderr, "modsnap-bench: interrupted before any page was seeded")
		return
	}

	// A checkpoint taken right after seeding covers every transaction
	// committed so far, letting later queries whose target is at or
	// after it take the checkpoint-frontier shortcut instead of
	// walking the undo chain.
	commits.SetHighestCheckpointLSN(commits.GetModsnapStartLSN())

	start := time.Now()
	issued, encodedBytes := runQueries(ctx, engine, commits, codec, rng, workload, *queries)
	elapsed := time.Since(start)

	stats := engine.Stats()
	fmt.Printf("seeded %d pages, %d edits each (%.0f%% left in progress)\n",
		len(workload.keys), *editsPerPage, *inProgress*100)
	fmt.Printf("issued %d/%d reconstruction queries in %s\n", issued, *queries, elapsed)
	if issued > 0 {
		fmt.Printf("average latency: %s\n", elapsed/time.Duration(issued))
	}
	fmt.Printf("cache: %d hits, %d misses, %d total (%d bytes re-encoded)\n",
		stats.Hits, stats.Misses, stats.Total, encodedBytes)
}

// chainStep is one edit in a page's undo chain, recorded alongside
// whether its writing transaction was marked committed - only
// committed steps are valid reconstruction targets, since a snapshot
// of an in-progress write was never meant to be requestable.
type chainStep struct {
	lsn       lsn.LSN
	committed bool
}

type workload struct {
	keys   []storage.PageKey
	chains map[storage.PageKey][]chainStep
}

// seedWorkload builds pagesCount independent undo chains: each page
// gets editsPerPage add/remove-family records from distinct
// transactions, chained by PrevLSN, with a caller-tunable fraction of
// those transactions left out of the commit map entirely (still
// in-progress). The buffer pool ends up holding, for every page, a
// page image whose LSN points at the chain's most recent record; the
// image carries only its page number and LSN, with a zeroed payload.
func seedWorkload(ctx context.Context, wal *memadapter.Log, pool *memadapter.BufferPool, commits *commitmap.Map, rng *rand.Rand, pagesCount, editsPerPage int, inProgressFraction float64) workload {
	w := workload{chains: make(map[storage.PageKey][]chainStep, pagesCount)}

	var nextUTXNID storage.UTXNID = 1
	for p := 0; p < pagesCount; p++ {
		select {
		case <-ctx.Done():
			return w
		default:
		}

		key := storage.PageKey{FileID: storage.NewFileID(), PageNo: storage.PageNo(p)}
		im := page.New(256)
		im.SetPageNo(key.PageNo)

		prev := lsn.Zero
		steps := make([]chainStep, 0, editsPerPage)
		for e := 0; e < editsPerPage; e++ {
			utxnid := nextUTXNID
			nextUTXNID++

			recLSN := appendAddRemoveRecord(wal, utxnid, prev, key.PageNo, uint32(e), true, nil)

			committed := rng.Float64() >= inProgressFraction
			if committed {
				commits.Add(utxnid, recLSN)
			}

			steps = append(steps, chainStep{lsn: recLSN, committed: committed})
			prev = recLSN
		}

		im.SetLSN(prev)
		pool.Put(key, im)

		w.keys = append(w.keys, key)
		w.chains[key] = steps
	}

	return w
}

func appendAddRemoveRecord(wal *memadapter.Log, utxnid storage.UTXNID, prevLSN lsn.LSN, pageNo storage.PageNo, slot uint32, added bool, value []byte) lsn.LSN {
	w := &logrecord.Writer{}
	logrecord.WriteHeader(w, logrecord.Header{
		Type:    logrecord.AddRemove,
		TxID:    storage.TxID(utxnid),
		PrevLSN: prevLSN,
		UTXNID:  utxnid,
	})
	w.WritePageNo(pageNo)
	w.WriteUint32(slot)
	w.WriteBool(added)
	w.WriteVarBytes(value)

	return wal.Append(1, w.Bytes())
}

// runQueries issues count reconstruction requests against random
// (page, committed-snapshot) pairs drawn from the seeded workload,
// re-encoding each result through the page codec the way a host engine
// would before shipping it over the wire. Stops early if ctx is
// cancelled. Every handle returned by Fget is released via Fput before
// the next query, just as a real caller must.
func runQueries(ctx context.Context, engine *reconstruct.Engine, commits *commitmap.Map, codec memadapter.Codec, rng *rand.Rand, w workload, count int) (issued int, encodedBytes int64) {
	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return issued, encodedBytes
		default:
		}

		key := w.keys[rng.Intn(len(w.keys))]
		steps := w.chains[key]

		target := committedStepAt(steps, rng)
		if target == nil {
			continue
		}

		ckptCommitFrontier := commits.GetHighestCheckpointLSN()
		handle, err := engine.Fget(key, target.lsn, ckptCommitFrontier)
		issued++
		if err != nil {
			continue
		}

		encodedBytes += int64(len(codec.Encode(handle.Image())))
		engine.Fput(handle)
	}
	return issued, encodedBytes
}

func committedStepAt(steps []chainStep, rng *rand.Rand) *chainStep {
	start := rng.Intn(len(steps))
	for i := 0; i < len(steps); i++ {
		idx := (start + i) % len(steps)
		if steps[idx].committed {
			return &steps[idx]
		}
	}
	return nil
}
