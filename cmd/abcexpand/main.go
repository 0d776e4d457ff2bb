// abcexpand expands a cached scene the way a renderer would: it creates the
// top-level procedural from the configuration, expands it, then expands
// every generated procedural concurrently into an in-memory node table.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/abcproc/internal/assets"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/procedural"
	"github.com/Faultbox/abcproc/internal/render"
)

var (
	flagDump   = flag.Bool("dump", false, "Print every created node")
	flagJobs   = flag.Int("jobs", runtime.NumCPU(), "Procedurals expanded concurrently")
	flagSearch = flag.String("search", "", "Directory scene paths are resolved against")
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if cfg.Verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Filename == "" {
		fmt.Fprintln(os.Stderr, "Usage: abcexpand -scene <file.yaml> [-config <file>] [-frame N] [-dump]")
		os.Exit(1)
	}

	sink := render.NewMemorySink()
	env := procedural.Env{
		Registry: render.NewRegistry(sink),
		Scenes:   assets.NewManager(),
	}
	defer env.Scenes.Close()

	if *flagSearch != "" {
		if err := env.Scenes.AddSearchDir(*flagSearch); err != nil {
			logger.Error("bad search directory", zap.Error(err))
			os.Exit(1)
		}
	}

	if err := run(env, cfg); err != nil {
		logger.Error("expansion failed", zap.Error(err))
		os.Exit(1)
	}

	if *flagDump {
		if err := render.Dump(os.Stdout, sink.Nodes()); err != nil {
			logger.Error("dump failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}
	printSummary(env, sink)
}

// run expands the top-level procedural and then every procedural it
// generated.
func run(env procedural.Env, cfg *config.Config) error {
	data, err := cfg.Marshal(config.FormatYAML)
	if err != nil {
		return err
	}
	name := "abcproc_" + filepath.Base(cfg.Filename)
	root, err := env.Registry.CreateNode(render.TypeProcedural, name, nil)
	if err != nil {
		return err
	}
	if err := root.SetString("data", string(data)); err != nil {
		return err
	}

	top, err := procedural.New(root, env)
	if err != nil {
		return err
	}
	defer top.Close()
	logger.Info("expanding",
		zap.String("file", cfg.Filename),
		zap.Stringer("mode", top.Mode()),
		zap.Int("nodes", top.NumNodes()),
		zap.String("run", top.RunID()))

	var children []*render.Node
	for i := range top.NumNodes() {
		node, err := top.GetNode(i)
		if err != nil {
			return err
		}
		if node != nil && node.Type() == render.TypeProcedural {
			children = append(children, node)
		}
	}

	var g errgroup.Group
	g.SetLimit(max(*flagJobs, 1))
	for _, child := range children {
		g.Go(func() error {
			return expand(env, child)
		})
	}
	return g.Wait()
}

// expand runs one generated procedural. Failures only lose that shape.
func expand(env procedural.Env, node *render.Node) error {
	p, err := procedural.New(node, env)
	if err != nil {
		logger.Warn("cannot create procedural", zap.String("node", node.Name()), zap.Error(err))
		return nil
	}
	defer p.Close()

	for i := range p.NumNodes() {
		if _, err := p.GetNode(i); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(env procedural.Env, sink *render.MemorySink) {
	counts := make(map[string]int)
	disabled := 0
	for _, n := range sink.Nodes() {
		counts[n.Type()]++
		if n.Disabled() {
			disabled++
		}
	}

	types := make([]string, 0, len(counts))
	for typ := range counts {
		types = append(types, typ)
	}
	sort.Strings(types)

	fmt.Println("Nodes by type:")
	for _, typ := range types {
		fmt.Printf("  %-12s %d\n", typ, counts[typ])
	}
	fmt.Printf("Disabled: %d\n", disabled)
	fmt.Printf("Masters:  %d\n", env.Registry.NumMasters())

	hits, misses := env.Scenes.Stats()
	fmt.Printf("Scenes:   %d loaded, %d shared\n", misses, hits)
}
