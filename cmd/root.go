// Package cmd contains all the commands included in the employeectl binary.
package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	employees "github.com/st-keller/employee-client"
	"github.com/st-keller/employee-client/cmd/util"
	"github.com/st-keller/employee-client/logging"
)

const (
	apiRootFlag        = "api-root"
	apiRootConf        = "api.root"
	eventsURLFlag      = "events-url"
	eventsURLConf      = "events.url"
	pageSizeFlag       = "page-size"
	pageSizeConf       = "page.size"
	requestTimeoutFlag = "request-timeout"
	requestTimeoutConf = "request.timeout"
	logFormatFlag      = "log-format"
	logFormatConf      = "log.format"
	logLevelFlag       = "log-level"
	logLevelConf       = "log.level"
	tlsCertFlag        = "tls-cert"
	tlsCertConf        = "tls.cert"
	tlsKeyFlag         = "tls-key"
	tlsKeyConf         = "tls.key"
	tlsCAFlag          = "tls-ca"
	tlsCAConf          = "tls.ca"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment
// variables prefixed with EMPLOYEECTL, or employeectl.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("employeectl")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("EMPLOYEECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/employeectl", "$HOME/.employeectl", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}
	// a missing config file is fine; flags and env still apply
	_ = viper.ReadInConfig()

	root := &cobra.Command{
		Use:   "employeectl",
		Short: "Browse and edit the employees of a payroll server",
		Long: `Browse and edit the employees of a payroll server.

employeectl talks to the server's hypermedia API, following links from the API
root, and can watch the collection live over the server's STOMP event socket.`,
		SilenceUsage: true,
	}
	bindClientFlags(root)
	return root
}

func bindClientFlags(command *cobra.Command) {
	defaults := employees.DefaultConfig()
	flags := command.PersistentFlags()

	flags.String(apiRootFlag, defaults.APIRoot, "the API root resource")
	util.MustBindPFlag(apiRootConf, flags.Lookup(apiRootFlag))

	flags.String(eventsURLFlag, defaults.EventsURL, "the STOMP WebSocket endpoint for live updates (empty disables them)")
	util.MustBindPFlag(eventsURLConf, flags.Lookup(eventsURLFlag))

	flags.Int(pageSizeFlag, defaults.PageSize, "the number of employees per page")
	util.MustBindPFlag(pageSizeConf, flags.Lookup(pageSizeFlag))

	flags.Duration(requestTimeoutFlag, defaults.RequestTimeout, "the timeout of a single API request")
	util.MustBindPFlag(requestTimeoutConf, flags.Lookup(requestTimeoutFlag))

	flags.String(logFormatFlag, "text", "the log format to output logs in ('text' or 'json')")
	util.MustBindPFlag(logFormatConf, flags.Lookup(logFormatFlag))

	flags.String(logLevelFlag, "info", "the log level to use ('none', 'debug', 'info', 'warn', 'error')")
	util.MustBindPFlag(logLevelConf, flags.Lookup(logLevelFlag))

	flags.String(tlsCertFlag, "", "the client certificate for mTLS")
	util.MustBindPFlag(tlsCertConf, flags.Lookup(tlsCertFlag))

	flags.String(tlsKeyFlag, "", "the client key for mTLS")
	util.MustBindPFlag(tlsKeyConf, flags.Lookup(tlsKeyFlag))

	flags.String(tlsCAFlag, "", "the CA certificate for mTLS")
	util.MustBindPFlag(tlsCAConf, flags.Lookup(tlsCAFlag))

	command.MarkFlagsRequiredTogether(tlsCertFlag, tlsKeyFlag, tlsCAFlag)
}

// clientConfig reads the client configuration resolved by viper.
func clientConfig() employees.Config {
	return employees.Config{
		APIRoot:        viper.GetString(apiRootConf),
		EventsURL:      viper.GetString(eventsURLConf),
		PageSize:       viper.GetInt(pageSizeConf),
		RequestTimeout: viper.GetDuration(requestTimeoutConf),
		CertPath:       viper.GetString(tlsCertConf),
		KeyPath:        viper.GetString(tlsKeyConf),
		CAPath:         viper.GetString(tlsCAConf),
	}
}

func newLogger() (*zap.Logger, error) {
	return logging.NewLogger(viper.GetString(logFormatConf), viper.GetString(logLevelConf))
}

// newClient builds a client without live updates, for one-shot commands.
func newClient(opts ...employees.Option) (*employees.Client, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	cfg := clientConfig()
	cfg.EventsURL = ""

	c, err := employees.New(cfg, append([]employees.Option{employees.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return c, logger, nil
}

// shutdownTimeout bounds graceful shutdown of the metrics server.
const shutdownTimeout = 5 * time.Second
