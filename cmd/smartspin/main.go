// smartspin is the host-side controller for a smart bicycle trainer.
// It resolves shifter input against the active control mode, drives the
// resistance actuator, polls an optional bike over an auxiliary serial
// link, and serves logs over websocket plus Prometheus metrics and shift
// endpoints on the same listener.
//
// Usage:
//
//	smartspin -config-dir ~/.smartspin [options]
//
// Options:
//
//	-config-dir string   Directory for settings and capability files
//	-device string       Auxiliary serial device (e.g. /dev/ttyUSB0)
//	-listen string       HTTP listen address for log streaming (default ":8080")
//	-board-voltage int   Measured board revision divider voltage (default 1650)
//	-logfile string      Log file path (default: stdout)
//	-trace               Enable debug tracing
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"smartspin-go/pkg/board"
	"smartspin-go/pkg/config"
	"smartspin-go/pkg/control"
	"smartspin-go/pkg/ftms"
	"smartspin-go/pkg/log"
	"smartspin-go/pkg/metrics"
	"smartspin-go/pkg/peloton"
	"smartspin-go/pkg/serial"
	"smartspin-go/pkg/shifter"
	"smartspin-go/pkg/state"
	"smartspin-go/pkg/stepper"
	"smartspin-go/pkg/supervisor"
)

func main() {
	configDir := flag.String("config-dir", defaultConfigDir(), "Directory for settings and capability files")
	device := flag.String("device", "", "Auxiliary serial device (e.g. /dev/ttyUSB0)")
	listen := flag.String("listen", ":8080", "HTTP listen address for log streaming")
	boardVoltage := flag.Int("board-voltage", board.Rev2.VersionVoltage, "Measured board revision divider voltage")
	logFile := flag.String("logfile", "", "Log file path (default: stdout)")
	trace := flag.Bool("trace", false, "Enable debug tracing")
	flag.Parse()

	logger := log.GetLogger("main")
	if *trace {
		logger.SetLevel(log.DEBUG)
	}
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetWriter(f)
		logger.SetColorize(false)
	}

	mirror := log.NewMirror(log.DefaultMirrorSize)
	logger.SetMirror(mirror)
	appender := log.NewWebsocketAppender(mirror)
	defer appender.Close()

	profile := board.Select(*boardVoltage, board.Rev1, board.Rev2)
	logger.Info("board revision: %s", profile.Name)

	store, err := config.NewFileStore(*configDir)
	if err != nil {
		logger.Error("config store unavailable: %v", err)
		os.Exit(1)
	}
	settings, err := store.LoadSettings()
	if err != nil {
		logger.Warn("settings load failed, writing defaults: %v", err)
		if err := store.SetDefaults(); err != nil {
			logger.Error("default settings write failed: %v", err)
			os.Exit(1)
		}
		settings = config.DefaultSettings()
	}
	caps, err := store.LoadCapabilities()
	if err != nil {
		logger.Warn("capabilities load failed, using defaults: %v", err)
		caps = config.DefaultCapabilities()
	}

	params := state.NewParams()
	mail := &supervisor.Mailbox{}

	actuator := stepper.NewSim()
	actuator.SetRMSCurrent(settings.StepperPower())
	actuator.SetStealthChop(true)
	actuator.SetRunCurrent(profile.PwrScaler)

	restart := func() {
		logger.Warn("restarting")
		os.Exit(0)
	}

	mets := metrics.NewControllerMetrics()

	ctrl := control.New(params, settings, control.Options{
		Actuator: actuator,
		Writer:   ftms.NopWriter{},
		Notifier: mets,
		Clients:  clientsOf{appender},
		Logger:   log.GetLogger("control"),
		DirPin:   profile.DirPin,
		Store:    store,
		Restart:  restart,
		LED:      func(bool) {},
	})

	pins := &hostPins{}
	input := shifter.NewInput(params, pins.read, settings.ShifterDir, nowMillis, 0)
	ctrl.ResetIfShiftersHeld(input)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var aux supervisor.AuxTransmitter
	if *device != "" && profile.HasAuxSerial() {
		port, err := serial.Open(serial.Config{Device: *device})
		if err != nil {
			logger.Error("aux serial open failed: %v", err)
			os.Exit(1)
		}
		defer port.Close()
		decoder := peloton.NewTelemetryDecoder(params, log.GetLogger("peloton"))
		engine := peloton.New(params, port, decoder, log.GetLogger("peloton"))
		go port.ServeReceive(ctx, 10*time.Millisecond, engine.OnReceive)
		aux = engine
		logger.Info("auxiliary serial on %s", *device)
	}

	governor := control.NewThermalGovernor(actuator, ambientTemp, profile.PwrScaler,
		log.GetLogger("thermal"))
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				governor.Check()
			}
		}
	}()

	sup := supervisor.New(mail, supervisor.Config{
		Shift:   ctrl,
		Aux:     aux,
		Clients: clientsOf{appender},
		Flush: func() {
			mets.PowerWatts.Set(float64(params.Power.Value()))
			mets.CadenceRPM.Set(float64(params.Cadence.Value()))
			mets.Resistance.Set(float64(params.Resistance.Value()))
			mets.CurrentIncline.Set(params.CurrentIncline())
			mets.TargetIncline.Set(params.TargetIncline())
			mets.ShifterPosition.Set(float64(params.ShifterPosition()))
			mets.ClientsActive.Set(float64(appender.ClientCount()))
			mets.LogLinesDropped.Set(float64(mirror.Dropped()))
			appender.Loop()
		},
		Save: func() error {
			if err := store.SaveSettings(settings); err != nil {
				return err
			}
			return store.SaveCapabilities(caps)
		},
		Restart: restart,
		Logger:  log.GetLogger("supervisor"),
	})
	go sup.Run(ctx)
	go ctrl.RunMotion(ctx)

	mux := http.NewServeMux()
	mux.Handle("/logs", appender)
	mux.Handle("/metrics", mets.Registry)
	mux.HandleFunc("/shift/up", shiftHandler(input, pins, shifter.PinShiftUp))
	mux.HandleFunc("/shift/down", shiftHandler(input, pins, shifter.PinShiftDown))
	server := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		logger.Info("log streaming on %s/logs", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received %v, saving and shutting down", sig)

	if err := store.SaveSettings(settings); err != nil {
		logger.Error("final settings save failed: %v", err)
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}

// clientsOf adapts the websocket appender's client count to the connected
// clients collaborator.
type clientsOf struct {
	appender *log.WebsocketAppender
}

func (c clientsOf) ConnectedCount() int { return c.appender.ClientCount() }

// hostPins emulates the shifter inputs on hosts without GPIO: a pin reads
// asserted only while its HTTP trigger is being handled.
type hostPins struct {
	up, down atomic.Bool
}

func (p *hostPins) read(pin shifter.Pin) bool {
	if pin == shifter.PinShiftUp {
		return p.up.Load()
	}
	return p.down.Load()
}

func (p *hostPins) flag(pin shifter.Pin) *atomic.Bool {
	if pin == shifter.PinShiftUp {
		return &p.up
	}
	return &p.down
}

// shiftHandler exposes a shifter edge for triggering without hardware.
func shiftHandler(in *shifter.Input, pins *hostPins, pin shifter.Pin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := pins.flag(pin)
		f.Store(true)
		in.OnEdge(pin)
		f.Store(false)
		w.WriteHeader(http.StatusNoContent)
	}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// ambientTemp stands in for a driver temperature sensor on hosts without
// one.
func ambientTemp() float64 { return 25 }

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + "/.smartspin"
}
