// Command minstore runs one node of the replicated text store.
//
// Usage: minstore SERVERS_LIST_PATH BASE_PATH [PORT]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/westial/minstore/internal/httpapi"
	"github.com/westial/minstore/internal/kvstore"
	"github.com/westial/minstore/internal/kvstore/cache"
	"github.com/westial/minstore/internal/kvstore/registry"
	"github.com/westial/minstore/internal/kvstore/spread"
)

// DefaultPort is used when PORT is not given on the command line.
const DefaultPort = 8001

// route is the fixed HTTP resource prefix: requests land on /text/{uid}.
const route = "text"

// cacheSizeEnv optionally enables cache mode on this node: a positive byte
// limit, -1 for unlimited, or unset/0 to stay a plain origin/mirror node.
// Argument parsing proper is out of scope (spec.md §1); this is a deployment
// knob, not part of the CLI surface spec.md §6 defines.
const cacheSizeEnv = "MINSTORE_CACHE_SIZE"

func usage() string {
	return "Usage: minstore SERVERS_LIST_PATH BASE_PATH [PORT]\n\n" +
		"  SERVERS_LIST_PATH  path to a file listing peer URLs, one or more\n" +
		"                     per line or whitespace-separated. May be empty.\n" +
		"                     An optional leading \"*\" marks this node as a\n" +
		"                     bridge for its own outgoing replication.\n" +
		"  BASE_PATH          directory where record files are persisted.\n" +
		fmt.Sprintf("  PORT               listen port. Defaults to %d.\n", DefaultPort)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	fmt.Fprint(os.Stderr, usage())
	os.Exit(1)
}

func main() {
	args := os.Args[1:]

	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		fmt.Print(usage())
		os.Exit(1)
	}
	if len(args) < 2 {
		fail("Error: SERVERS_LIST_PATH and BASE_PATH are required.")
	}

	serversListPath, basePath := args[0], args[1]

	port := DefaultPort
	if len(args) >= 3 {
		p, err := strconv.Atoi(args[2])
		if err != nil {
			fail(fmt.Sprintf("Error: invalid PORT %q.", args[2]))
		}
		port = p
	}

	if !pathExists(serversListPath) {
		fail(fmt.Sprintf("Error: SERVERS_LIST_PATH %q does not exist.", serversListPath))
	}
	if !pathExists(basePath) {
		fail(fmt.Sprintf("Error: BASE_PATH %q does not exist.", basePath))
	}

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	reg, err := registry.Load(serversListPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load peer registry")
	}

	storage := kvstore.NewFileStorage(basePath)
	model := kvstore.NewModel(storage, kvstore.DefaultProcessors())
	strategy := spread.New(reg, route, logger)

	var c cache.Cache
	if limit, ok := cacheSizeFromEnv(); ok {
		mc := cache.NewMemoryCache(limit)
		if err := strategy.SetCache(mc); err != nil {
			logger.WithError(err).Fatal("failed to enable cache")
		}
		c = mc
	}

	server := httpapi.NewServer(model, strategy, c, route, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.WithFields(logrus.Fields{
		"port":  port,
		"peers": reg.Peers(),
	}).Info("minstore node listening")

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	strategy.Close()
}

func cacheSizeFromEnv() (int, bool) {
	raw := os.Getenv(cacheSizeEnv)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n == cache.Disabled {
		return 0, false
	}
	if n < cache.Unlimited {
		return 0, false
	}
	return n, true
}
