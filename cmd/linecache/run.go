package main

import (
	"errors"

	"github.com/sarchlab/linecache/sim"
	"github.com/spf13/cobra"
)

// ErrMismatch is returned when the memory content after the run differs
// from what the traffic generator wrote.
var ErrMismatch = errors.New("memory content mismatch")

type runOptions struct {
	byteSize        uint64
	lineByteWidth   uint64
	accessByteWidth uint64
	numWays         int
	policy          string
	randomSeed      uint32
	writeThrough    bool
	noReadAllocate  bool
	noWriteAllocate bool
	hitLatency      int
	numMSHREntry    int

	memLatency int

	numReads   int
	numWrites  int
	maxAddress uint64
	seed       int64

	output          string
	msgLog          string
	trace           bool
	profileInterval int
	monitor         bool
	monitorPort     int
	openBrowser     bool
	uniqueIDs       bool
}

var opts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run random traffic through a cache and verify the memory.",
	Long: `Run builds a traffic generator, a cache and an ideal memory ` +
		`controller. The generator issues random reads and writes and checks ` +
		`every read. After the traffic, the cache is flushed and the memory ` +
		`is compared with the values written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if opts.uniqueIDs {
			sim.UseParallelIDGenerator()
		}

		r, err := runAcceptance(opts)
		if err != nil {
			return err
		}

		r.print(cmd.OutOrStdout())

		if !r.passed() {
			return ErrMismatch
		}

		return nil
	},
}

func init() {
	loadEnv()

	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()

	f.Uint64Var(&opts.byteSize, "size",
		uint64(envInt("SIZE", 4096)), "cache capacity in bytes")
	f.Uint64Var(&opts.lineByteWidth, "line",
		uint64(envInt("LINE", 64)), "line size in bytes")
	f.Uint64Var(&opts.accessByteWidth, "access",
		uint64(envInt("ACCESS", 4)), "access width in bytes")
	f.IntVar(&opts.numWays, "ways",
		envInt("WAYS", 4), "associativity, 0 for fully associative")
	f.StringVar(&opts.policy, "policy",
		envString("POLICY", "LRU"), "replacement policy: RR, LRU or RANDOM")
	f.Uint32Var(&opts.randomSeed, "policy-seed",
		uint32(envInt("POLICY_SEED", 0)), "seed of the random policy")
	f.BoolVar(&opts.writeThrough, "write-through",
		envBool("WRITE_THROUGH", false), "write through instead of back")
	f.BoolVar(&opts.noReadAllocate, "no-read-allocate",
		envBool("NO_READ_ALLOCATE", false), "do not allocate on read misses")
	f.BoolVar(&opts.noWriteAllocate, "no-write-allocate",
		envBool("NO_WRITE_ALLOCATE", false), "do not allocate on write misses")
	f.IntVar(&opts.hitLatency, "hit-latency",
		envInt("HIT_LATENCY", 1), "cycles to access the data store")
	f.IntVar(&opts.numMSHREntry, "mshr",
		envInt("MSHR", 16), "number of outstanding backing store requests")

	f.IntVar(&opts.memLatency, "mem-latency",
		envInt("MEM_LATENCY", 100), "memory controller latency in cycles")

	f.IntVar(&opts.numReads, "reads",
		envInt("READS", 10000), "number of random reads")
	f.IntVar(&opts.numWrites, "writes",
		envInt("WRITES", 10000), "number of random writes")
	f.Uint64Var(&opts.maxAddress, "max-address",
		uint64(envInt("MAX_ADDRESS", 1<<16)), "traffic address range")
	f.Int64Var(&opts.seed, "seed",
		int64(envInt("SEED", 1)), "traffic seed")

	f.StringVar(&opts.output, "output",
		envString("OUTPUT", ""), "recording database name, without suffix")
	f.StringVar(&opts.msgLog, "msg-log",
		envString("MSG_LOG", ""), "log the messages of the cache ports to a file")
	f.BoolVar(&opts.trace, "trace",
		envBool("TRACE", false), "record cache tasks into the database")
	f.IntVar(&opts.profileInterval, "profile-interval",
		envInt("PROFILE_INTERVAL", 1000),
		"record the profile every n requests, 0 to disable")
	f.BoolVar(&opts.monitor, "monitor",
		envBool("MONITOR", false), "serve the monitoring API")
	f.IntVar(&opts.monitorPort, "monitor-port",
		envInt("MONITOR_PORT", 0), "monitoring port, 0 for a random one")
	f.BoolVar(&opts.openBrowser, "open-browser",
		envBool("OPEN_BROWSER", false), "open the monitor in a browser")
	f.BoolVar(&opts.uniqueIDs, "unique-ids",
		envBool("UNIQUE_IDS", false),
		"use globally unique message IDs instead of sequential ones")
}
