package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ocppnet/ocppnet/cli"
	_ "github.com/ocppnet/ocppnet/diagnostics"
	"github.com/ocppnet/ocppnet/node"
	"github.com/ocppnet/ocppnet/ocpp"
)

func main() {
	c, err, ok := cli.NewConfigFromCLI(os.Args)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if ok {
		os.Exit(0)
	}

	opts := []cli.Option{
		cli.WithName("OCPPNet"),
		cli.WithHandler("Heartbeat", heartbeat),
	}

	runner, err := cli.NewRunner(c, opts)

	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}

	err = runner.Run()

	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}
}

// Every node answers heartbeats addressed to it, so neighbours can probe reachability
var heartbeat = node.HandlerFunc(func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"currentTime": time.Now().UTC().Format(time.RFC3339)})
})
