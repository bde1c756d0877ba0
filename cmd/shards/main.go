package main

import (
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/fagongzi/log"
	"github.com/fagongzi/util/format"
	"shards.io/shards/pkg/cfg"
	"shards.io/shards/pkg/coordinator"
	"shards.io/shards/pkg/dashboard"
	"shards.io/shards/pkg/id"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/metrics"
	"shards.io/shards/pkg/strategy"
	"shards.io/shards/pkg/util"
)

var (
	waitSeconds   = flag.Int("wait", 0, "wait seconds")
	nodeID        = flag.Uint("id", 0, "Node ID")
	addr          = flag.String("addr", "127.0.0.1:8080", "Addr: dashboard api server")
	addrPPROF     = flag.String("addr-pprof", "", "Addr: pprof addr")
	shardAddrs    = flag.String("shards", "1=mem://,2=mem://", "Shards: comma separated id=addr pairs, the addr scheme selects the backend")
	virtualShards = flag.String("virtual-shards", "", "Shards: comma separated virtual=physical shard id pairs")
	accessMode    = flag.String("access", "parallel", "Access: broadcast dispatch, sequential or parallel")
	workerCount   = flag.Int("access-worker", 4, "Count: parallel broadcast workers")
	shardTimeout  = flag.Int("timeout-shard", 0, "Limit: per-shard call timeout seconds, 0 means none")
	crossCheck    = flag.Bool("cross-shard-check", false, "Enable: fail saves whose related entities live on another shard")
	cpu           = flag.Int("cpu", 0, "Limit: schedule threads count")
	ui            = flag.String("ui", "", "The dashboard ui dist dir")
	uiPrefix      = flag.String("ui-prefix", "/ui", "The dashboard ui prefix path")

	// metrics
	prometheusJob             = flag.String("metrics-job", "shards", "Prometheus job name")
	prometheusPushgateway     = flag.String("metrics-push-addr", "", "Prometheus pushgateway address")
	prometheusPushIntervalSec = flag.Int("metrics-push-interval", 0, "Prometheus metrics push interval in seconds")

	version = flag.Bool("version", false, "Show version info")
)

func main() {
	flag.Parse()
	if *version && util.PrintVersion() {
		os.Exit(0)
	}

	if *waitSeconds > 0 {
		time.Sleep(time.Second * time.Duration(*waitSeconds))
	}

	log.InitLog()

	if *cpu == 0 {
		runtime.GOMAXPROCS(runtime.NumCPU())
	} else {
		runtime.GOMAXPROCS(*cpu)
	}

	if *addrPPROF != "" {
		go func() {
			log.Errorf("start pprof failed, errors:\n%+v",
				http.ListenAndServe(*addrPPROF, nil))
		}()
	}

	metrics.Push(&metrics.MetricConfig{
		PushJob:      *prometheusJob,
		PushAddress:  *prometheusPushgateway,
		PushInterval: time.Second * time.Duration(*prometheusPushIntervalSec),
	})

	access, stopAccess := parseAccessStrategy()

	c := &cfg.Cfg{
		Shards:        parseShards(),
		VirtualShards: parseVirtualShards(),
		CoordinatorOptions: []coordinator.Option{
			coordinator.WithAccessStrategy(access),
			coordinator.WithIDGenerator(id.NewSnowflakeGenerator(uint16(*nodeID))),
		},
	}
	if *crossCheck {
		c.CoordinatorOptions = append(c.CoordinatorOptions,
			coordinator.WithCrossShardCheck())
	}

	coord, err := c.Build()
	if err != nil {
		log.Fatalf("create coordinator failed, %+v", err)
	}

	s := dashboard.NewDashboard(dashboard.Cfg{
		Addr:     *addr,
		UI:       *ui,
		UIPrefix: *uiPrefix,
	}, coord)

	go func() {
		err := s.Start()
		if err != nil {
			log.Fatalf("start dashboard failed, %+v", err)
		}
	}()

	waitStop(s, coord, stopAccess)
}

func waitStop(s *dashboard.Dashboard, coord *coordinator.Coordinator, stopAccess func()) {
	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	sig := <-sc
	s.Stop()
	coord.Close()
	if stopAccess != nil {
		stopAccess()
	}

	log.Infof("exit: signal=<%d>.", sig)
	switch sig {
	case syscall.SIGTERM:
		log.Infof("exit: bye :-).")
		os.Exit(0)
	default:
		log.Infof("exit: bye :-(.")
		os.Exit(1)
	}
}

func parseShards() []cfg.ShardConfig {
	var shards []cfg.ShardConfig
	for _, pair := range strings.Split(*shardAddrs, ",") {
		if pair == "" {
			continue
		}

		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			log.Fatalf("parse shard pair %s failed", pair)
		}

		sid := meta.ShardID(format.MustParseStrUInt64(kv[0]))
		shards = append(shards, cfg.ShardConfig{
			ShardID:     &sid,
			BackendAddr: kv[1],
		})
	}

	return shards
}

func parseVirtualShards() map[meta.ShardID]meta.ShardID {
	if *virtualShards == "" {
		return nil
	}

	virtualMap := make(map[meta.ShardID]meta.ShardID)
	for _, pair := range strings.Split(*virtualShards, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			log.Fatalf("parse virtual shard pair %s failed", pair)
		}

		virtual := meta.ShardID(format.MustParseStrUInt64(kv[0]))
		physical := meta.ShardID(format.MustParseStrUInt64(kv[1]))
		virtualMap[virtual] = physical
	}

	return virtualMap
}

func parseAccessStrategy() (strategy.ShardAccessStrategy, func()) {
	switch *accessMode {
	case "sequential":
		return strategy.NewSequentialShardAccessStrategy(), nil
	case "parallel":
		var opts []strategy.Option
		opts = append(opts, strategy.WithWorkers(*workerCount))
		if *shardTimeout > 0 {
			opts = append(opts,
				strategy.WithTimeout(time.Second*time.Duration(*shardTimeout)))
		}

		s := strategy.NewParallelShardAccessStrategy(opts...)
		return s, s.Stop
	}

	log.Fatalf("access mode %s is not support", *accessMode)
	return nil, nil
}
