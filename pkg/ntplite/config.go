package ntplite

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultDiscoverWindow is how long a bare "discover" directive browses
// the local network for advertised servers.
const DefaultDiscoverWindow = 3 * time.Second

// ServerAddress is one configured time server.
type ServerAddress struct {
	Hostname string
	Port     uint16
}

// FileConfig is the parsed form of a configuration file.
type FileConfig struct {
	Servers          []ServerAddress
	AutoSyncInterval time.Duration
	Timeout          time.Duration
	LocalPort        uint16
	Zone             TimeZone
	StateFile        string
	Discover         time.Duration
}

// LoadConfig reads and parses a configuration file.
//
// The format is line oriented; "#" starts a comment. Directives:
//
//	server <host> [port <n>]
//	autosync <seconds>
//	timeout <milliseconds>
//	localport <n>
//	timezone <name>
//	statefile <path>
//	discover [<seconds>]
func LoadConfig(path string) (*FileConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	return parseConfig(file)
}

func parseConfig(r io.Reader) (*FileConfig, error) {
	config := &FileConfig{
		Timeout:   DefaultSyncTimeout,
		LocalPort: DefaultLocalPort,
		Zone:      ZoneUTC(),
	}

	lineno := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineno++
		arguments := strings.Fields(scanner.Text())
		if len(arguments) == 0 || strings.HasPrefix(arguments[0], "#") {
			continue
		}

		switch arguments[0] {
		case "server":
			port, err := integerArgument("port", int(DefaultServerPort), &arguments)
			if err != nil {
				return nil, parseError(lineno, "%v", err)
			}
			// The port pair is stripped first so a bare "server port <n>"
			// still reads as a missing hostname.
			if len(arguments) < 2 {
				return nil, parseError(lineno, "server needs a hostname")
			}
			if port < 1 || port > 65535 {
				return nil, parseError(lineno, "port %d out of range", port)
			}
			if len(arguments) > 2 {
				return nil, parseError(lineno, "stray argument %q", arguments[2])
			}
			config.Servers = append(config.Servers, ServerAddress{Hostname: arguments[1], Port: uint16(port)})
		case "autosync":
			seconds, err := requiredInteger(lineno, arguments)
			if err != nil {
				return nil, err
			}
			if seconds < 1 {
				return nil, parseError(lineno, "autosync interval must be positive")
			}
			config.AutoSyncInterval = time.Duration(seconds) * time.Second
		case "timeout":
			ms, err := requiredInteger(lineno, arguments)
			if err != nil {
				return nil, err
			}
			if ms < 1 {
				return nil, parseError(lineno, "timeout must be positive")
			}
			config.Timeout = time.Duration(ms) * time.Millisecond
		case "localport":
			port, err := requiredInteger(lineno, arguments)
			if err != nil {
				return nil, err
			}
			if port < 0 || port > 65535 {
				return nil, parseError(lineno, "port %d out of range", port)
			}
			config.LocalPort = uint16(port)
		case "timezone":
			if len(arguments) < 2 {
				return nil, parseError(lineno, "timezone needs a name")
			}
			zone, err := ZoneByName(arguments[1])
			if err != nil {
				return nil, parseError(lineno, "%v", err)
			}
			config.Zone = zone
		case "statefile":
			if len(arguments) < 2 {
				return nil, parseError(lineno, "statefile needs a path")
			}
			config.StateFile = arguments[1]
		case "discover":
			config.Discover = DefaultDiscoverWindow
			if len(arguments) > 1 {
				seconds, err := strconv.Atoi(arguments[1])
				if err != nil || seconds < 1 {
					return nil, parseError(lineno, "discover window must be a positive integer")
				}
				config.Discover = time.Duration(seconds) * time.Second
			}
		default:
			return nil, parseError(lineno, "unknown directive %q", arguments[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return config, nil
}

// Apply registers the file's servers and settings on a client.
func (config *FileConfig) Apply(client *Client) error {
	for _, server := range config.Servers {
		if err := client.AddServer(server.Hostname, server.Port); err != nil {
			return err
		}
	}
	client.SetZone(config.Zone)
	if config.AutoSyncInterval > 0 {
		client.SetAutoSync(true, config.AutoSyncInterval)
	}
	return nil
}

// ZoneByName maps configuration names onto the built-in zone presets.
func ZoneByName(name string) (TimeZone, error) {
	switch strings.ToLower(name) {
	case "utc":
		return ZoneUTC(), nil
	case "eastern", "us-eastern", "est":
		return ZoneEasternUS(), nil
	case "pacific", "us-pacific", "pst":
		return ZonePacificUS(), nil
	case "central-europe", "cet":
		return ZoneCentralEuropean(), nil
	}
	return TimeZone{}, fmt.Errorf("unknown timezone %q", name)
}

func parseError(lineno int, format string, args ...any) error {
	return fmt.Errorf("config line %d: %s", lineno, fmt.Sprintf(format, args...))
}

func requiredInteger(lineno int, arguments []string) (int, error) {
	if len(arguments) < 2 {
		return 0, parseError(lineno, "%s needs a value", arguments[0])
	}
	value, err := strconv.Atoi(arguments[1])
	if err != nil {
		return 0, parseError(lineno, "%s requires an integer value", arguments[0])
	}
	return value, nil
}

// integerArgument extracts an optional "<name> <value>" pair from the
// argument list, returning initial when the pair is absent.
func integerArgument(name string, initial int, arguments *[]string) (int, error) {
	valueStr, err := stringArgument(name, strconv.Itoa(initial), arguments)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s requires an integer value", name)
	}
	return value, nil
}

func stringArgument(name string, initial string, arguments *[]string) (string, error) {
	for i, argument := range *arguments {
		if name == argument {
			if i == len(*arguments)-1 {
				return "", fmt.Errorf("no value supplied for argument %q", name)
			}
			value := (*arguments)[i+1]
			removeIndex(arguments, i)
			removeIndex(arguments, i)
			return value, nil
		}
	}
	return initial, nil
}

func removeIndex[T any](s *[]T, index int) {
	ret := make([]T, 0)
	ret = append(ret, (*s)[:index]...)
	ret = append(ret, (*s)[index+1:]...)
	*s = ret
}
