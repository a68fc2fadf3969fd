package sh

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/abiosoft/ishell"
	"golang.org/x/net/websocket"

	"github.com/robotalks/blink.go/pkg/led"
)

// Shell provides ishell backed interactive access to a blink device.
// Received device output is printed as it arrives.
type Shell struct {
	Interactive bool

	Shell *ishell.Shell

	lock sync.Mutex
	conn io.ReadWriteCloser
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly bool
	addr     = "localhost:9600"
	wsOrigin = "http://localhost/"

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&OnTimeCmd,
		&LogCmd,
		&FsLogCmd,
		&ClockCmd,
		&SendCmd,
		&DeviceHelpCmd,
	}
)

func init() {
	if val := os.Getenv("BLINK_ADDR"); val != "" {
		addr = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.StringVar(&addr, "addr", addr, "Device address, host:port or ws:// URL.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).Connected() {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Connected reports whether a device is attached.
func (s *Shell) Connected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.conn != nil
}

// Connect attaches to a device. target is host:port for TCP or a
// ws:// URL for websocket.
func (s *Shell) Connect(target string) error {
	var conn io.ReadWriteCloser
	var err error
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		conn, err = websocket.Dial(target, "", wsOrigin)
	} else {
		conn, err = net.Dial("tcp", target)
	}
	if err != nil {
		return err
	}
	s.Disconnect()
	s.lock.Lock()
	s.conn = conn
	s.lock.Unlock()
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", target))
	go s.readLoop(conn)
	return nil
}

// Disconnect detaches from the current device.
func (s *Shell) Disconnect() {
	s.lock.Lock()
	conn := s.conn
	s.conn = nil
	s.lock.Unlock()
	if conn != nil {
		conn.Close()
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Send writes one command line to the device.
func (s *Shell) Send(line string) error {
	s.lock.Lock()
	conn := s.conn
	s.lock.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

func (s *Shell) readLoop(conn io.ReadWriteCloser) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.Shell.Print(string(buf[:n]))
		}
		if err != nil {
			s.lock.Lock()
			dropped := s.conn == conn
			if dropped {
				s.conn = nil
			}
			s.lock.Unlock()
			if dropped {
				s.Shell.Println("device disconnected")
				s.Shell.SetPrompt(unconnectedPrompt)
			}
			return
		}
	}
}

func sendCmd(fn func(c *ishell.Context) (string, error)) func(c *ishell.Context) {
	return MustBeConnected(func(c *ishell.Context) {
		line, err := fn(c)
		if err != nil {
			c.Err(err)
			return
		}
		if err = ShellFrom(c).Send(line); err != nil {
			c.Err(err)
		}
	})
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if addr != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", addr)
		}
		if err := s.Connect(addr); err != nil {
			log.Fatalf("connect %q failed: %v", addr, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd attaches to a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "ADDR",
		Func: func(c *ishell.Context) {
			target := addr
			if len(c.Args) > 0 {
				target = c.Args[0]
			}
			if err := ShellFrom(c).Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd detaches from the current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// OnTimeCmd sets the LED on time.
	OnTimeCmd = ishell.Cmd{
		Name: "ontime",
		Help: "MS",
		Func: sendCmd(func(c *ishell.Context) (string, error) {
			if len(c.Args) != 1 {
				return "", fmt.Errorf("usage: ontime MS")
			}
			ms, err := strconv.Atoi(c.Args[0])
			if err != nil {
				return "", err
			}
			if ms < led.OnTimeMin || ms > led.OnTimeMax {
				return "", fmt.Errorf("on time must be between %d and %d ms",
					led.OnTimeMin, led.OnTimeMax)
			}
			return strconv.Itoa(ms), nil
		}),
	}

	// LogCmd toggles channel logging.
	LogCmd = ishell.Cmd{
		Name: "log",
		Help: "on|off",
		Func: sendCmd(func(c *ishell.Context) (string, error) {
			if len(c.Args) != 1 || (c.Args[0] != "on" && c.Args[0] != "off") {
				return "", fmt.Errorf("usage: log on|off")
			}
			return "log " + c.Args[0], nil
		}),
	}

	// FsLogCmd toggles file system logging or replays stored logs.
	FsLogCmd = ishell.Cmd{
		Name: "fslog",
		Help: "on|off|out",
		Func: sendCmd(func(c *ishell.Context) (string, error) {
			if len(c.Args) != 1 {
				return "", fmt.Errorf("usage: fslog on|off|out")
			}
			switch c.Args[0] {
			case "on", "off", "out":
				return "fsLog " + c.Args[0], nil
			}
			return "", fmt.Errorf("usage: fslog on|off|out")
		}),
	}

	// ClockCmd sets the device clock.
	ClockCmd = ishell.Cmd{
		Name: "clock",
		Help: "HH:MM:SS",
		Func: sendCmd(func(c *ishell.Context) (string, error) {
			if len(c.Args) != 1 {
				return "", fmt.Errorf("usage: clock HH:MM:SS")
			}
			return c.Args[0], nil
		}),
	}

	// SendCmd sends a raw command line.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "LINE",
		Func: sendCmd(func(c *ishell.Context) (string, error) {
			if len(c.Args) == 0 {
				return "", fmt.Errorf("usage: send LINE")
			}
			return strings.Join(c.Args, " "), nil
		}),
	}

	// DeviceHelpCmd asks the device for its command list.
	DeviceHelpCmd = ishell.Cmd{
		Name: "device-help",
		Help: "",
		Func: sendCmd(func(c *ishell.Context) (string, error) {
			return "help", nil
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
