package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joomcode/errorx"
	"github.com/ocppnet/ocppnet/config"
	"github.com/ocppnet/ocppnet/version"
	"github.com/urfave/cli/v2"
)

type cliOption func(*cli.App) error

type customOptionsFactory = func() ([]cli.Flag, error)

func WithCLIName(name string) cliOption {
	return func(app *cli.App) error {
		app.Name = name
		return nil
	}
}

func WithCLIVersion(str string) cliOption {
	return func(app *cli.App) error {
		app.Version = str
		return nil
	}
}

func WithCLIUsageHeader(desc string) cliOption {
	return func(app *cli.App) error {
		app.Usage = desc
		return nil
	}
}

func WithCLICustomOptions(factory customOptionsFactory) cliOption {
	return func(app *cli.App) error {
		custom, err := factory()
		if err != nil {
			return err
		}

		app.Flags = append(app.Flags, custom...)
		return nil
	}
}

// NewConfigFromCLI reads config from os.Args. It returns config, error (if any) and a bool value
// indicating that the usage message or version was shown, no further action required.
//
// Values from the config file (--config-path) become flag defaults, so flags and env vars win.
func NewConfigFromCLI(args []string, opts ...cliOption) (*config.Config, error, bool) {
	c := config.NewConfig()

	if path := configPathFromArgs(args); path != "" {
		if err := c.LoadFromFile(path); err != nil {
			return &config.Config{}, err, false
		}
	}

	var helpOrVersionWereShown = true
	var printConfig bool
	var routes, trustedKeys, neighbours, metricsFilter, enatsRoutes string
	var configPath string

	// Print raw version without prefix
	cli.VersionPrinter = func(cCtx *cli.Context) {
		_, _ = fmt.Fprintf(cCtx.App.Writer, "%v\n", cCtx.App.Version)
	}

	flags := []cli.Flag{}
	flags = append(flags, nodeCLIFlags(&c, &routes)...)
	flags = append(flags, serverCLIFlags(&c)...)
	flags = append(flags, sslCLIFlags(&c)...)
	flags = append(flags, wsCLIFlags(&c)...)
	flags = append(flags, correlationCLIFlags(&c)...)
	flags = append(flags, signingCLIFlags(&c, &trustedKeys)...)
	flags = append(flags, natsCLIFlags(&c, &neighbours)...)
	flags = append(flags, embeddedNatsCLIFlags(&c, &enatsRoutes)...)
	flags = append(flags, logCLIFlags(&c)...)
	flags = append(flags, metricsCLIFlags(&c, &metricsFilter)...)
	flags = append(flags, miscCLIFlags(&configPath, &printConfig)...)

	app := &cli.App{
		Name:            "ocppnet",
		Version:         version.Version(),
		Usage:           "OCPPNet, an OCPP networking node",
		HideHelpCommand: true,
		Flags:           flags,
		Action: func(nc *cli.Context) error {
			helpOrVersionWereShown = false
			return nil
		},
	}

	for _, o := range opts {
		err := o(app)
		if err != nil {
			return &config.Config{}, err, false
		}
	}

	err := app.Run(args)
	if err != nil {
		return &config.Config{}, err, false
	}

	// helpOrVersionWereShown = false indicates that the default action has been run.
	// true means that help/version message was displayed.
	if helpOrVersionWereShown {
		return &config.Config{}, nil, true
	}

	if routes != "" {
		if c.Node.Routes, err = parsePairs(routes); err != nil {
			return &config.Config{}, errorx.Decorate(err, "invalid routes"), false
		}
	}

	if trustedKeys != "" {
		if c.Signing.TrustedKeys, err = parsePairs(trustedKeys); err != nil {
			return &config.Config{}, errorx.Decorate(err, "invalid trusted keys"), false
		}
	}

	if neighbours != "" {
		c.NATS.Neighbours = strings.Split(neighbours, ",")
	}

	if metricsFilter != "" {
		c.Metrics.LogFilter = strings.Split(metricsFilter, ",")
	}

	if enatsRoutes != "" {
		c.EmbeddedNats.Routes = strings.Split(enatsRoutes, ",")
	}

	if c.Log.Debug {
		c.Log.LogLevel = "debug"
		c.Log.LogFormat = "text"
	}

	if err := c.Validate(); err != nil {
		return &config.Config{}, err, false
	}

	if printConfig {
		fmt.Print(c.ToToml())
		return &c, nil, true
	}

	return &c, nil, false
}

// Flags ordering issue: https://github.com/urfave/cli/pull/1430

const (
	nodeCategoryDescription         = "NETWORKING NODE:"
	serverCategoryDescription       = "SERVER:"
	sslCategoryDescription          = "SSL:"
	wsCategoryDescription           = "WEBSOCKETS:"
	correlationCategoryDescription  = "REQUESTS:"
	signingCategoryDescription      = "SIGNING:"
	natsCategoryDescription         = "NATS:"
	embeddedNatsCategoryDescription = "EMBEDDED NATS:"
	logCategoryDescription          = "LOG:"
	metricsCategoryDescription      = "METRICS:"
	miscCategoryDescription         = "MISC:"

	envPrefix = "OCPPNET_"
)

var (
	splitFlagName = regexp.MustCompile("[_-]")
)

// configPathFromArgs looks up the config file location before the flags are parsed
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		for _, name := range []string{"--config-path", "-config-path"} {
			if arg == name && i+1 < len(args) {
				return args[i+1]
			}

			if strings.HasPrefix(arg, name+"=") {
				return strings.TrimPrefix(arg, name+"=")
			}
		}
	}

	return os.Getenv(envPrefix + "CONFIG_PATH")
}

// nodeCLIFlags returns networking node flags
func nodeCLIFlags(c *config.Config, routes *string) []cli.Flag {
	return withDefaults(nodeCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "id",
			Usage:       "Networking node identifier",
			Value:       c.Node.ID,
			Destination: &c.Node.ID,
		},

		&cli.StringFlag{
			Name:        "mode",
			Usage:       "Networking mode for locally originated messages (standard, overlay)",
			Value:       c.Protocol.Mode,
			Destination: &c.Protocol.Mode,
		},

		&cli.StringFlag{
			Name:        "default_route",
			Usage:       "Neighbour to send messages with unknown destinations to",
			Value:       c.Node.DefaultRoute,
			Destination: &c.Node.DefaultRoute,
		},

		&cli.StringFlag{
			Name:        "routes",
			Usage:       "Static routes as a comma-separated list of destination:neighbour pairs",
			Destination: routes,
		},

		&cli.BoolFlag{
			Name:        "learn_routes",
			Usage:       "Learn routes from the paths of incoming messages",
			Value:       c.Node.LearnRoutes,
			Destination: &c.Node.LearnRoutes,
		},

		&cli.IntFlag{
			Name:        "handler_pool_size",
			Usage:       "Max number of concurrently executed action handlers",
			Value:       c.Node.HandlerPoolSize,
			Destination: &c.Node.HandlerPoolSize,
		},

		&cli.IntFlag{
			Name:        "write_timeout",
			Usage:       "Frame write timeout (in seconds)",
			Value:       c.Node.WriteTimeout,
			Destination: &c.Node.WriteTimeout,
		},

		&cli.Uint64Flag{
			Name:        "max_binary_payload_size",
			Usage:       "Maximum binary payload size (in bytes)",
			Value:       c.Protocol.MaxBinaryPayloadSize,
			Destination: &c.Protocol.MaxBinaryPayloadSize,
		},
	})
}

// serverCLIFlags returns base server flags
func serverCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(serverCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "host",
			Value:       c.Server.Host,
			Usage:       "Server host",
			Destination: &c.Server.Host,
		},

		&cli.IntFlag{
			Name:        "port",
			Value:       c.Server.Port,
			Usage:       "Server port",
			EnvVars:     []string{envPrefix + "PORT", "PORT"},
			Destination: &c.Server.Port,
		},

		&cli.IntFlag{
			Name:        "max-conn",
			Usage:       "Limit simultaneous server connections (0 - without limit)",
			Value:       c.Server.MaxConn,
			Destination: &c.Server.MaxConn,
		},

		&cli.StringFlag{
			Name:        "health-path",
			Value:       c.Server.HealthPath,
			Usage:       "HTTP health endpoint path",
			Destination: &c.Server.HealthPath,
		},

		&cli.IntFlag{
			Name:        "shutdown_timeout",
			Usage:       "Graceful shutdown timeout (in seconds)",
			Value:       c.ShutdownTimeout,
			Destination: &c.ShutdownTimeout,
		},
	})
}

// sslCLIFlags returns SSL flags
func sslCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(sslCategoryDescription, []cli.Flag{
		&cli.PathFlag{
			Name:        "ssl_cert",
			Usage:       "SSL certificate path",
			Value:       c.Server.SSL.CertPath,
			Destination: &c.Server.SSL.CertPath,
		},

		&cli.PathFlag{
			Name:        "ssl_key",
			Usage:       "SSL private key path",
			Value:       c.Server.SSL.KeyPath,
			Destination: &c.Server.SSL.KeyPath,
		},
	})
}

// wsCLIFlags returns WebSocket transport flags
func wsCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(wsCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "path",
			Usage:       "WebSocket endpoint path (neighbours connect to <path>/<node id>)",
			Value:       c.WS.Path,
			Destination: &c.WS.Path,
		},

		&cli.StringFlag{
			Name:        "allowed_origins",
			Usage:       "Accept requests only from specified origins, e.g., \"www.example.com,*example.io\". No check is performed if empty",
			Value:       c.WS.AllowedOrigins,
			Destination: &c.WS.AllowedOrigins,
		},

		&cli.IntFlag{
			Name:        "read_buffer_size",
			Usage:       "WebSocket connection read buffer size",
			Value:       c.WS.ReadBufferSize,
			Destination: &c.WS.ReadBufferSize,
		},

		&cli.IntFlag{
			Name:        "write_buffer_size",
			Usage:       "WebSocket connection write buffer size",
			Value:       c.WS.WriteBufferSize,
			Destination: &c.WS.WriteBufferSize,
		},

		&cli.Int64Flag{
			Name:        "max_message_size",
			Usage:       "Maximum size of a message in bytes",
			Value:       c.WS.MaxMessageSize,
			Destination: &c.WS.MaxMessageSize,
		},

		&cli.BoolFlag{
			Name:        "enable_ws_compression",
			Usage:       "Enable experimental WebSocket per message compression",
			Value:       c.WS.EnableCompression,
			Destination: &c.WS.EnableCompression,
		},

		&cli.IntFlag{
			Name:        "ping_interval",
			Usage:       "WebSocket ping interval (in seconds, 0 disables pings)",
			Value:       c.WS.PingInterval,
			Destination: &c.WS.PingInterval,
		},

		&cli.StringFlag{
			Name:        "upstream_url",
			Usage:       "WebSocket endpoint of the upstream node (without the node id)",
			Value:       c.WS.UpstreamURL,
			Destination: &c.WS.UpstreamURL,
		},

		&cli.StringFlag{
			Name:        "upstream_id",
			Usage:       "Node id of the upstream node",
			Value:       c.WS.UpstreamID,
			Destination: &c.WS.UpstreamID,
		},

		&cli.IntFlag{
			Name:        "max_reconnect_interval",
			Usage:       "Max delay between upstream reconnection attempts (in seconds)",
			Value:       c.WS.MaxReconnectInterval,
			Destination: &c.WS.MaxReconnectInterval,
		},
	})
}

// correlationCLIFlags returns outgoing requests flags
func correlationCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(correlationCategoryDescription, []cli.Flag{
		&cli.IntFlag{
			Name:        "request_timeout",
			Usage:       "Default timeout for outgoing requests (in seconds)",
			Value:       c.Correlation.DefaultTimeout,
			Destination: &c.Correlation.DefaultTimeout,
		},

		&cli.IntFlag{
			Name:        "max_pending",
			Usage:       "Max number of outgoing requests awaiting a reply (0 - without limit)",
			Value:       c.Correlation.MaxPending,
			Destination: &c.Correlation.MaxPending,
		},
	})
}

// signingCLIFlags returns message signing flags
func signingCLIFlags(c *config.Config, trustedKeys *string) []cli.Flag {
	return withDefaults(signingCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "signing_policy",
			Usage:       "Message signing policy (none, hmac, ed25519)",
			Value:       c.Signing.Policy,
			Destination: &c.Signing.Policy,
		},

		&cli.StringFlag{
			Name:        "signing_key_id",
			Usage:       "Identifier of the local signing key",
			Value:       c.Signing.KeyID,
			Destination: &c.Signing.KeyID,
		},

		&cli.StringFlag{
			Name:        "signing_secret",
			Usage:       "Shared secret for HMAC signatures",
			Value:       c.Signing.Secret,
			Destination: &c.Signing.Secret,
		},

		&cli.StringFlag{
			Name:        "signing_private_key",
			Usage:       "Base64-encoded ed25519 seed",
			Value:       c.Signing.PrivateKey,
			Destination: &c.Signing.PrivateKey,
		},

		&cli.StringFlag{
			Name:        "signing_trusted_keys",
			Usage:       "Trusted ed25519 public keys as a comma-separated list of key_id:base64 pairs",
			Destination: trustedKeys,
		},

		&cli.BoolFlag{
			Name:        "sign_outbound",
			Usage:       "Sign outgoing messages",
			Value:       c.Signing.SignOutbound,
			Destination: &c.Signing.SignOutbound,
		},

		&cli.BoolFlag{
			Name:        "require_signatures",
			Usage:       "Reject incoming messages without valid signatures",
			Value:       c.Signing.RequireSignatures,
			Destination: &c.Signing.RequireSignatures,
		},
	})
}

// natsCLIFlags returns NATS links flags
func natsCLIFlags(c *config.Config, neighbours *string) []cli.Flag {
	return withDefaults(natsCategoryDescription, []cli.Flag{
		&cli.BoolFlag{
			Name:        "nats_enabled",
			Usage:       "Exchange frames with neighbours over NATS",
			Value:       c.NATS.Enabled,
			Destination: &c.NATS.Enabled,
		},

		&cli.StringFlag{
			Name:        "nats_servers",
			Usage:       "Comma separated list of NATS cluster servers",
			Value:       c.NATS.Servers,
			Destination: &c.NATS.Servers,
		},

		&cli.StringFlag{
			Name:        "nats_prefix",
			Usage:       "NATS subject prefix",
			Value:       c.NATS.Prefix,
			Destination: &c.NATS.Prefix,
		},

		&cli.BoolFlag{
			Name:        "nats_dont_randomize_servers",
			Usage:       "Pass this option to disable NATS servers randomization during (re-)connect",
			Value:       c.NATS.DontRandomizeServers,
			Destination: &c.NATS.DontRandomizeServers,
		},

		&cli.IntFlag{
			Name:        "nats_max_reconnect_attempts",
			Usage:       "Max number of NATS reconnect attempts",
			Value:       c.NATS.MaxReconnectAttempts,
			Destination: &c.NATS.MaxReconnectAttempts,
		},

		&cli.StringFlag{
			Name:        "nats_neighbours",
			Usage:       "Comma separated list of neighbour node ids reachable over NATS",
			Destination: neighbours,
		},
	})
}

// embeddedNatsCLIFlags returns embedded NATS server flags
func embeddedNatsCLIFlags(c *config.Config, routes *string) []cli.Flag {
	return withDefaults(embeddedNatsCategoryDescription, []cli.Flag{
		&cli.BoolFlag{
			Name:        "embed_nats",
			Usage:       "Enable embedded NATS server and use it for NATS links",
			Value:       c.EmbeddedNats.Enabled,
			Destination: &c.EmbeddedNats.Enabled,
		},

		&cli.StringFlag{
			Name:        "enats_addr",
			Usage:       "NATS server bind address",
			Value:       c.EmbeddedNats.ServiceAddr,
			Destination: &c.EmbeddedNats.ServiceAddr,
		},

		&cli.StringFlag{
			Name:        "enats_cluster",
			Usage:       "NATS cluster service bind address",
			Value:       c.EmbeddedNats.ClusterAddr,
			Destination: &c.EmbeddedNats.ClusterAddr,
		},

		&cli.StringFlag{
			Name:        "enats_cluster_name",
			Usage:       "NATS cluster name",
			Value:       c.EmbeddedNats.ClusterName,
			Destination: &c.EmbeddedNats.ClusterName,
		},

		&cli.StringFlag{
			Name:        "enats_cluster_routes",
			Usage:       "Comma-separated list of known other nodes to connect to",
			Destination: routes,
		},

		&cli.BoolFlag{
			Name:        "enats_debug",
			Usage:       "Enable NATS server logs",
			Value:       c.EmbeddedNats.Debug,
			Destination: &c.EmbeddedNats.Debug,
		},

		&cli.BoolFlag{
			Name:        "enats_trace",
			Usage:       "Enable NATS server protocol trace logs",
			Value:       c.EmbeddedNats.Trace,
			Destination: &c.EmbeddedNats.Trace,
		},
	})
}

// logCLIFlags returns logging flags
func logCLIFlags(c *config.Config) []cli.Flag {
	return withDefaults(logCategoryDescription, []cli.Flag{
		&cli.StringFlag{
			Name:        "log_level",
			Usage:       "Set logging level (debug/info/warn/error)",
			Value:       c.Log.LogLevel,
			Destination: &c.Log.LogLevel,
		},

		&cli.StringFlag{
			Name:        "log_format",
			Usage:       "Set logging format (text/json)",
			Value:       c.Log.LogFormat,
			Destination: &c.Log.LogFormat,
		},

		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Enable debug mode (more verbose logging)",
			Value:       c.Log.Debug,
			Destination: &c.Log.Debug,
		},
	})
}

// metricsCLIFlags returns metrics flags
func metricsCLIFlags(c *config.Config, filter *string) []cli.Flag {
	return withDefaults(metricsCategoryDescription, []cli.Flag{
		&cli.BoolFlag{
			Name:        "metrics_log",
			Usage:       "Enable metrics logging (with info level)",
			Value:       c.Metrics.Log,
			Destination: &c.Metrics.Log,
		},

		&cli.IntFlag{
			Name:        "metrics_rotate_interval",
			Usage:       "Specify how often to flush metrics to writers (logs) (in seconds)",
			Value:       c.Metrics.RotateInterval,
			Destination: &c.Metrics.RotateInterval,
		},

		&cli.StringFlag{
			Name:        "metrics_log_filter",
			Usage:       "Specify list of metrics to print to log (to reduce the output)",
			Destination: filter,
		},

		&cli.StringFlag{
			Name:        "metrics_http",
			Usage:       "Enable HTTP metrics endpoint at the specified path",
			Value:       c.Metrics.HTTP,
			Destination: &c.Metrics.HTTP,
		},

		&cli.StringFlag{
			Name:        "metrics_host",
			Usage:       "Server host for metrics endpoint",
			Value:       c.Metrics.Host,
			Destination: &c.Metrics.Host,
		},

		&cli.IntFlag{
			Name:        "metrics_port",
			Usage:       "Server port for metrics endpoint, the same as for main server by default",
			Value:       c.Metrics.Port,
			Destination: &c.Metrics.Port,
		},
	})
}

// miscCLIFlags returns uncategorized flags
func miscCLIFlags(path *string, printConfig *bool) []cli.Flag {
	return withDefaults(miscCategoryDescription, []cli.Flag{
		&cli.PathFlag{
			Name:        "config-path",
			Usage:       "Path to the TOML configuration file",
			Destination: path,
		},

		&cli.BoolFlag{
			Name:        "print-config",
			Usage:       "Print the resulting configuration (TOML) and exit",
			Destination: printConfig,
		},
	})
}

// withDefaults assigns the category and the OCPPNET_ env var to every flag
func withDefaults(category string, flags []cli.Flag) []cli.Flag {
	for _, f := range flags {
		switch v := f.(type) {
		case *cli.IntFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.Int64Flag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.Uint64Flag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.BoolFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.StringFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		case *cli.PathFlag:
			v.Category = category
			if len(v.EnvVars) == 0 {
				v.EnvVars = []string{nameToEnvVarName(v.Name)}
			}
		}
	}
	return flags
}

// nameToEnvVarName converts flag name to env variable
func nameToEnvVarName(name string) string {
	split := splitFlagName.Split(name, -1)
	set := []string{}

	for i := range split {
		set = append(set, strings.ToUpper(split[i]))
	}

	return envPrefix + strings.Join(set, "_")
}

// parsePairs parses a comma-separated list of key:value pairs
func parsePairs(str string) (map[string]string, error) {
	res := make(map[string]string)

	for _, pair := range strings.Split(str, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)

		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errorx.IllegalFormat.New("expected key:value, got %q", pair)
		}

		res[parts[0]] = parts[1]
	}

	return res, nil
}
