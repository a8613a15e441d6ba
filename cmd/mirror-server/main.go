// Command mirror-server serves data/mirror.json as a catalog ItemList
// endpoint. Point catalog.endpoint at it to run ingest offline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"avinfo/internal/logger"
	"avinfo/internal/mirror"
)

func main() {
	var (
		dataPath = flag.String("data", "data/mirror.json", "mirror file written by export-mirror")
		addr     = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	log, err := logger.New(logger.Config{Level: "info", Format: "console", Name: "mirror"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	mirror.NewServer(*dataPath, log).RegisterRoutes(router.Group("/"))

	log.Info("mirror-server listening", "addr", *addr, "data", *dataPath)
	if err := router.Run(*addr); err != nil {
		log.Error("mirror-server stopped", "error", err)
		os.Exit(1)
	}
}
