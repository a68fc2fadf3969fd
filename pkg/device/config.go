// Package device assembles a complete blink device: channel transport,
// loggers, router, command interpreter and LED blinkers.
package device

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/bootclock"
	"github.com/robotalks/blink.go/pkg/channel"
	"github.com/robotalks/blink.go/pkg/channel/mqtt"
	"github.com/robotalks/blink.go/pkg/channel/stream"
	"github.com/robotalks/blink.go/pkg/channel/websocket"
	"github.com/robotalks/blink.go/pkg/command"
	fx "github.com/robotalks/blink.go/pkg/framework"
	"github.com/robotalks/blink.go/pkg/led"
	"github.com/robotalks/blink.go/pkg/logger"
	"github.com/robotalks/blink.go/pkg/volume"
)

// RunnableChannel is a channel transport driven by its own runnable.
type RunnableChannel interface {
	channel.Channel
	fx.Runnable
}

// Config specifies how to assemble a device.
type Config struct {
	Transport  string
	ListenAddr string
	MQTTURL    string
	DeviceID   string
	VolDir     string
	VolQuota   int64
	LedNames   []string
}

var defaultConfig = Config{
	Transport:  "tcp",
	ListenAddr: ":9600",
	MQTTURL:    "mqtt://localhost:1883/blink/",
	VolQuota:   64 * 1024,
	LedNames:   []string{"blue", "red", "orange", "green"},
}

func init() {
	if val := os.Getenv("BLINK_TRANSPORT"); val != "" {
		defaultConfig.Transport = val
	}
	if val := os.Getenv("BLINK_LISTEN"); val != "" {
		defaultConfig.ListenAddr = val
	}
	if val := os.Getenv("BLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("BLINK_VOL_DIR"); val != "" {
		defaultConfig.VolDir = val
	}
	if val := os.Getenv("BLINK_VOL_QUOTA"); val != "" {
		if quota, err := strconv.ParseInt(val, 10, 64); err == nil {
			defaultConfig.VolQuota = quota
		}
	}
}

// SetupFlags registers command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Transport, "transport", defaultConfig.Transport,
		"Channel transport: tcp, ws or mqtt.")
	flag.StringVar(&defaultConfig.ListenAddr, "listen", defaultConfig.ListenAddr,
		"Listening address for tcp/ws transports.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL,
		"MQTT broker URL.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID,
		"Device ID, defaults to the machine ID.")
	flag.StringVar(&defaultConfig.VolDir, "vol-dir", defaultConfig.VolDir,
		"Directory backing the log volume, in-memory when empty.")
	flag.Int64Var(&defaultConfig.VolQuota, "vol-quota", defaultConfig.VolQuota,
		"Log volume capacity in bytes.")
}

// NewConfig creates a Config from flags and environment.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Device is an assembled blink device.
type Device struct {
	ID      string
	Channel RunnableChannel
	Clock   *bootclock.Clock
	Volume  volume.Volume
	Fs      *logger.FsLog
	Usb     *logger.UsbLogger
	Router  *logger.Router
	Interp  *command.Interpreter
	Leds    *led.Controller

	mq       *mqtt.Queue
	blinkers []*led.Blinker
}

// NewDevice assembles a Device from the config.
func (c *Config) NewDevice() (*Device, error) {
	d := &Device{ID: c.DeviceID, Clock: bootclock.New()}
	if d.ID == "" {
		d.ID = MachineID()
	}

	switch c.Transport {
	case "tcp":
		ch, err := stream.Listen(c.ListenAddr)
		if err != nil {
			return nil, err
		}
		d.Channel = ch
	case "ws":
		d.Channel = websocket.NewServer(c.ListenAddr)
	case "mqtt":
		q, err := mqtt.NewQueueFromURL(c.MQTTURL)
		if err != nil {
			return nil, err
		}
		if token := q.Connect(); token.Wait() && token.Error() != nil {
			return nil, token.Error()
		}
		d.mq = q
		d.Channel = mqtt.NewChannel(q, d.ID)
	default:
		return nil, fmt.Errorf("unknown transport %q", c.Transport)
	}

	if c.VolDir != "" {
		d.Volume = &volume.DirVolume{Dir: c.VolDir, Quota: c.VolQuota}
	} else {
		d.Volume = volume.NewRamDisk(c.VolQuota)
	}

	d.Usb = logger.NewUsbLogger(d.Channel)
	d.Fs = logger.NewFsLog(d.Volume)
	d.Fs.Sender = d.Usb
	d.Fs.Diag = d.Usb.Log
	d.Router = logger.NewRouter(d.Usb, d.Fs, d.Clock)
	d.Leds = led.NewController(d.Router)
	d.Interp = command.NewInterpreter(d.Channel)
	d.Interp.Router = d.Router
	d.Interp.Sender = d.Usb
	d.Interp.Clock = d.Clock
	d.Interp.Leds = d.Leds
	d.Usb.CommandPoll = d.Interp.Poll

	for _, name := range c.LedNames {
		d.blinkers = append(d.blinkers, d.Leds.NewBlinker(name, &led.MemPin{}))
	}
	return d, nil
}

// MustNewDevice assembles a Device or exits.
func (c *Config) MustNewDevice() *Device {
	d, err := c.NewDevice()
	if err != nil {
		glog.Exitf("device setup failed: %v", err)
	}
	return d
}

// Start initializes the log file system and spawns all runnables on
// the runner.
func (d *Device) Start(runner *fx.Runner) {
	if status := d.Fs.Init(); status != logger.StatusInitialized {
		glog.Warningf("log file system unavailable: %v", status)
	}
	runner.Go(
		fx.NamedRun("channel", d.Channel),
		fx.NamedRun("usb-logger", d.Usb),
	)
	for _, b := range d.blinkers {
		runner.Go(b)
	}
	if d.mq != nil {
		// retained presence so clients discover the device
		d.mq.PubWith(d.ID+"/presence", []byte("online"), 0, true)
	}
	glog.Infof("blink device %s ready", d.ID)
}

// Run assembles signal handling and runs the device to completion.
func (d *Device) Run(ctx context.Context) error {
	runner := fx.NewRunnerWith(ctx).HandleSignals()
	d.Start(runner)
	return runner.Wait()
}
