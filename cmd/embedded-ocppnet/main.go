package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ocppnet/ocppnet/cli"
	"github.com/ocppnet/ocppnet/config"
	"github.com/ocppnet/ocppnet/ocpp"
	"github.com/ocppnet/ocppnet/utils"
)

// An example of a CSMS application accepting charging stations through an embedded node
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))

	c := config.NewConfig()
	c.Node.ID = "CSMS"

	opts := []cli.Option{
		cli.WithName("CSMS"),
	}

	runner, err := cli.NewRunner(&c, opts)

	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}

	embedded, err := runner.Embed()

	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}

	csms := embedded.Node()

	csms.HandleFunc("BootNotification", func(ctx context.Context, req ocpp.Envelope) (json.RawMessage, error) {
		logger.Info("station booted", "station", string(req.NetworkPath.Source()))

		return json.Marshal(map[string]interface{}{
			"currentTime": time.Now().UTC().Format(time.RFC3339),
			"interval":    300,
			"status":      "Accepted",
		})
	})

	csms.OnRequestReceived(func(ctx context.Context, env ocpp.Envelope) error {
		logger.Debug("request received", "action", env.Action, "request_id", string(env.RequestID))
		return nil
	})

	http.Handle(c.WS.Path+"/", embedded.WebSocketHandler())
	http.Handle("/metrics", embedded.MetricsHandler())

	go http.ListenAndServe(":8080", nil) // nolint:errcheck,gosec

	s := utils.NewGracefulSignals(10*time.Second, logger)
	ch := make(chan error, 1)

	s.HandleForceTerminate(func() {
		logger.Warn("immediate termination requested. Stopped")
		ch <- nil
	})

	s.Handle("announce", func(ctx context.Context) error {
		logger.Info("shutting down... (hit Ctrl-C to stop immediately or wait for up to 10s for graceful shutdown)")
		return nil
	})
	s.Handle("csms", embedded.Shutdown)
	s.Handle("exit", func(ctx context.Context) error {
		ch <- nil
		return nil
	})

	s.Listen()

	<-ch
}
