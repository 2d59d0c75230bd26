package celrix

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/kelseyhightower/envconfig"

	"github.com/celrix/celrix-go/resp"
)

// Default connection settings.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 6380
	DefaultDialTimeout = 5 * time.Second
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "CELRIX"

// Protocol selects the wire format of a session.
type Protocol int

const (
	// ProtocolBinary is the framed VCP protocol.
	ProtocolBinary Protocol = iota
	// ProtocolText is the RESP-like line protocol.
	ProtocolText
)

func (p Protocol) String() string {
	switch p {
	case ProtocolBinary:
		return "binary"
	case ProtocolText:
		return "text"
	default:
		return "Protocol(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseProtocol accepts "binary" (or "vcp") and "text" (or "resp").
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "vcp":
		return ProtocolBinary, nil
	case "text", "resp":
		return ProtocolText, nil
	default:
		return 0, fmt.Errorf("celrix: unknown protocol %q", s)
	}
}

// Decode implements envconfig.Decoder.
func (p *Protocol) Decode(value string) error {
	parsed, err := ParseProtocol(value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Config holds the settings of a session and of the client built on it.
type Config struct {
	Host string `envconfig:"HOST"`
	Port int    `envconfig:"PORT"`

	// Protocol defaults to ProtocolBinary.
	Protocol Protocol `envconfig:"PROTOCOL"`

	// DialTimeout bounds the TCP connect. Zero means no timeout besides the
	// context passed to Dial.
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT"`

	// MaxDepth bounds array nesting when decoding text responses.
	MaxDepth int `envconfig:"MAX_DEPTH"`

	// Logger receives session lifecycle records. If nil, slog.Default() is used.
	Logger *slog.Logger `ignored:"true"`

	// Metrics, when set, receives per-command counters and latency histograms.
	Metrics *metrics.Set `ignored:"true"`

	// NewCircuitBreaker creates a circuit breaker for the server address.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) CircuitBreaker `ignored:"true"`
}

// DefaultConfig returns a Config for a local server using the binary protocol.
func DefaultConfig() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		Protocol:    ProtocolBinary,
		DialTimeout: DefaultDialTimeout,
		MaxDepth:    resp.DefaultMaxDepth,
	}
}

// LoadConfig returns DefaultConfig overridden by CELRIX_* environment
// variables: CELRIX_HOST, CELRIX_PORT, CELRIX_PROTOCOL, CELRIX_DIAL_TIMEOUT
// and CELRIX_MAX_DEPTH.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("celrix: load config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields Dial depends on.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("celrix: empty host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("celrix: invalid port %d", c.Port)
	}
	if c.Protocol != ProtocolBinary && c.Protocol != ProtocolText {
		return fmt.Errorf("celrix: invalid protocol %s", c.Protocol)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("celrix: invalid max depth %d", c.MaxDepth)
	}
	return nil
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) maxDepth() int {
	if c.MaxDepth > 0 {
		return c.MaxDepth
	}
	return resp.DefaultMaxDepth
}
