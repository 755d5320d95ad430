package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charging-platform/charge-point-client/internal/chargepoint"
	"github.com/charging-platform/charge-point-client/internal/config"
	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/logger"
	"github.com/charging-platform/charge-point-client/internal/store"
	"github.com/charging-platform/charge-point-client/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Async:  cfg.Log.Async,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("Logger initialized")

	// 3. Initialize the durable store
	durable, err := newDurableStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize durable store: %v", err)
	}
	defer durable.Close()
	log.Infof("Durable store initialized (%s backend)", cfg.Store.Backend)

	// 4. Build the engine
	engine := chargepoint.New(cfg.ChargePoint, log, durable)
	engine.Subscribe(chargepoint.ObserverFuncs{
		StatusChange: func(status chargepoint.Status, detail string) {
			if detail != "" {
				fmt.Printf("** status: %s (%s)\n", status, detail)
				return
			}
			fmt.Printf("** status: %s\n", status)
		},
		AvailabilityChange: func(connectorID int, availability ocpp16.AvailabilityType) {
			fmt.Printf("** connector %d availability: %s\n", connectorID, availability)
		},
		MeterValueChange: func(valueWh int) {
			fmt.Printf("** meter: %d Wh\n", valueWh)
		},
		Log: func(message string) {
			fmt.Println(message)
		},
	})

	// 5. Optional Kafka telemetry export
	if cfg.Telemetry.Enabled {
		exporter, err := telemetry.NewKafkaExporter(cfg.Telemetry.Brokers, cfg.Telemetry.Topic, cfg.ChargePoint.CPID)
		if err != nil {
			log.Fatalf("Failed to initialize telemetry exporter: %v", err)
		}
		defer exporter.Close()
		engine.Subscribe(exporter.Observer())
		log.Infof("Telemetry exporter initialized, topic %s", cfg.Telemetry.Topic)
	}

	// 6. Optional Prometheus endpoint
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Errorf("Metrics server failed: %v", err)
			}
		}()
		log.Infof("Metrics server listening on %s", cfg.Metrics.Addr)
	}

	// Disconnect cleanly on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		engine.Disconnect()
		os.Exit(0)
	}()

	runInteractive(engine)
	engine.Disconnect()
}

func newDurableStore(cfg *config.Config) (store.DurableStore, error) {
	if cfg.Store.Backend == "redis" {
		return store.NewRedisStore(cfg.Store.Redis, cfg.ChargePoint.CPID+":")
	}
	return store.NewFileStore(cfg.Store.File)
}

// runInteractive reads operator commands from stdin until EOF or quit.
func runInteractive(engine *chargepoint.Engine) {
	fmt.Println("charge point client ready, type 'help' for commands")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "connect":
			wsURL, cpID := "", ""
			if len(args) > 0 {
				wsURL = args[0]
			}
			if len(args) > 1 {
				cpID = args[1]
			}
			if err := engine.Connect(wsURL, cpID); err != nil {
				fmt.Printf("connect failed: %v\n", err)
			}

		case "disconnect":
			engine.Disconnect()

		case "authorize", "auth":
			tag := ""
			if len(args) > 0 {
				tag = args[0]
			}
			if err := engine.Authorize(tag); err != nil {
				fmt.Printf("authorize failed: %v\n", err)
			}

		case "start":
			tag := ""
			if len(args) > 0 {
				tag = args[0]
			}
			if err := engine.StartTransaction(tag); err != nil {
				fmt.Printf("start failed: %v\n", err)
			}

		case "stop":
			tag := ""
			if len(args) > 0 {
				tag = args[0]
			}
			if err := engine.StopTransaction(tag); err != nil {
				fmt.Printf("stop failed: %v\n", err)
			}

		case "stopid":
			if len(args) < 1 {
				fmt.Println("usage: stopid <transactionId> [tag]")
				continue
			}
			txID, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Println("transactionId must be an integer")
				continue
			}
			tag := ""
			if len(args) > 1 {
				tag = args[1]
			}
			if err := engine.StopTransactionWithID(txID, tag); err != nil {
				fmt.Printf("stop failed: %v\n", err)
			}

		case "meter":
			if len(args) < 1 {
				fmt.Printf("meter: %d Wh\n", engine.MeterValue())
				continue
			}
			wh, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Println("meter value must be an integer (Wh)")
				continue
			}
			updateServer := len(args) > 1 && args[1] == "send"
			if err := engine.SetMeterValue(wh, updateServer); err != nil {
				fmt.Printf("meter update failed: %v\n", err)
			}

		case "sendmeter":
			connectorID := 0
			if len(args) > 0 {
				if c, err := strconv.Atoi(args[0]); err == nil {
					connectorID = c
				}
			}
			if err := engine.SendMeterValue(connectorID); err != nil {
				fmt.Printf("meter values failed: %v\n", err)
			}

		case "datatransfer", "dt":
			if len(args) < 1 {
				fmt.Println("usage: datatransfer <vendorId> [messageId] [data...]")
				continue
			}
			messageID := ""
			if len(args) > 1 {
				messageID = args[1]
			}
			var data interface{}
			if len(args) > 2 {
				data = strings.Join(args[2:], " ")
			}
			if err := engine.SendDataTransfer(args[0], messageID, data); err != nil {
				fmt.Printf("data transfer failed: %v\n", err)
			}

		case "heartbeat", "hb":
			if err := engine.SendHeartbeat(); err != nil {
				fmt.Printf("heartbeat failed: %v\n", err)
			}

		case "status":
			fmt.Printf("charge point: %s\n", engine.Status())
			for c := 0; c <= 2; c++ {
				fmt.Printf("connector %d: status=%s availability=%s\n",
					c, engine.ConnectorStatus(c), engine.Availability(c))
			}

		case "availability", "avail":
			if len(args) < 2 {
				fmt.Println("usage: availability <connector> <Operative|Inoperative>")
				continue
			}
			c, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Println("connector must be an integer")
				continue
			}
			if err := engine.SetConnectorAvailability(c, ocpp16.AvailabilityType(args[1])); err != nil {
				fmt.Printf("availability change failed: %v\n", err)
			}

		case "help":
			printHelp()

		case "quit", "exit":
			return

		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  connect [wsUrl] [cpId]       open the WebSocket and send BootNotification
  disconnect                   close the connection (code 3001)
  authorize [tag]              send Authorize
  start [tag]                  send StartTransaction on connector 1
  stop [tag]                   send StopTransaction for the current transaction
  stopid <txId> [tag]          send StopTransaction for a specific transaction
  meter [wh] [send]            show or set the meter; 'send' reports it
  sendmeter [connector]        send MeterValues
  datatransfer <vendor> [id]   send a vendor-specific DataTransfer
  heartbeat                    send a Heartbeat now
  status                       show charge point and connector state
  availability <c> <type>      set connector availability (cascades from 0)
  quit                         exit`)
}
