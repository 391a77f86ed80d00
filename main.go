package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/nvail/realmsync/internal/client"
	"github.com/nvail/realmsync/internal/config"
	"github.com/nvail/realmsync/internal/connection"
	"github.com/nvail/realmsync/internal/transport"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	c := client.New(cfg, transport.NewSocket(cfg.ServerURL))
	defer c.Close()

	unsubscribe := c.Conn.OnStatusChange(func(s connection.Status) {
		fmt.Printf("connection: %s\n", s)
	})
	defer unsubscribe()

	c.Conn.Connect(os.Getenv("REALMSYNC_CREDENTIAL"))

	// Run until interrupted.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
}
