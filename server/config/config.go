// Package config defines the configuration surface of the mistri server.
// Values are resolved from flags, environment variables (MISTRI_ prefix) and
// an optional YAML config file, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "MISTRI"
)

// MysqlConfig defines configs related to MySQL
type MysqlConfig struct {
	Protocol             string
	Address              string
	Username             string
	Password             string
	Database             string
	MaxOpenConns         int `yaml:"max_open_conns"`
	MaxIdleConns         int `yaml:"max_idle_conns"`
	ConnMaxLifetime      int `yaml:"conn_max_lifetime"`
	ConnectRetryAttempts int `yaml:"connect_retry_attempts"`
}

// RedisConfig defines configs related to Redis. Redis is optional and powers
// the cross-instance job event stream; when the address is empty the server
// runs with the in-process poller only.
type RedisConfig struct {
	Address         string
	Password        string
	Database        int
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	KeepAlive       time.Duration `yaml:"keep_alive"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
}

// ServerConfig defines configs related to the HTTP server
type ServerConfig struct {
	Address   string
	URLPrefix string `yaml:"url_prefix"`
}

// AppConfig defines configs related to the job lifecycle
type AppConfig struct {
	// ActivePollInterval is the snapshot refresh interval for
	// latency-sensitive subscriptions (broadcast feeds, job tracking).
	ActivePollInterval time.Duration `yaml:"active_poll_interval"`
	// AdminPollInterval is the refresh interval for admin dashboards.
	AdminPollInterval time.Duration `yaml:"admin_poll_interval"`
	// CancellationPenalty is the amount debited from a worker's wallet when
	// they cancel an accepted job.
	CancellationPenalty int `yaml:"cancellation_penalty"`
	// OtpVerifyBurst is the number of OTP verification attempts allowed per
	// job before throttling kicks in.
	OtpVerifyBurst int `yaml:"otp_verify_burst"`
}

// WorkerConfig defines configs related to the settlement outbox worker
type WorkerConfig struct {
	ProcessInterval time.Duration `yaml:"process_interval"`
}

// LoggingConfig defines configs related to logging
type LoggingConfig struct {
	Debug         bool
	JSON          bool
	DisableBanner bool `yaml:"disable_banner"`
}

// MistriConfig stores the application configuration. Each subcategory is
// broken up into it's own struct, defined above. When editing any of these
// structs, Manager.addConfigs and Manager.LoadConfig should be
// updated to set and retrieve the configurations as appropriate.
type MistriConfig struct {
	Mysql   MysqlConfig
	Redis   RedisConfig
	Server  ServerConfig
	App     AppConfig
	Worker  WorkerConfig
	Logging LoggingConfig
}

// addConfigs adds the configuration keys and default values that will be
// filled into the MistriConfig struct
func (man Manager) addConfigs() {
	// MySQL
	man.addConfigString("mysql.protocol", "tcp",
		"MySQL server communication protocol (tcp,unix,...)")
	man.addConfigString("mysql.address", "localhost:3306",
		"MySQL server address (host:port)")
	man.addConfigString("mysql.username", "mistri",
		"MySQL server username")
	man.addConfigString("mysql.password", "",
		"MySQL server password (prefer env variable for security)")
	man.addConfigString("mysql.database", "mistri",
		"MySQL database name")
	man.addConfigInt("mysql.max_open_conns", 50,
		"MySQL maximum open connection handles")
	man.addConfigInt("mysql.max_idle_conns", 50,
		"MySQL maximum idle connection handles")
	man.addConfigInt("mysql.conn_max_lifetime", 0,
		"MySQL maximum amount of time a connection may be reused")
	man.addConfigInt("mysql.connect_retry_attempts", 15,
		"Number of attempts to connect to MySQL before failing")

	// Redis
	man.addConfigString("redis.address", "",
		"Redis server address (host:port); empty disables the event stream")
	man.addConfigString("redis.password", "",
		"Redis server password (prefer env variable for security)")
	man.addConfigInt("redis.database", 0,
		"Redis server database number")
	man.addConfigDuration("redis.connect_timeout", 5*time.Second,
		"Timeout at connection time")
	man.addConfigDuration("redis.keep_alive", 10*time.Second,
		"Interval between keep alive probes")
	man.addConfigInt("redis.max_idle_conns", 30,
		"Redis maximum idle connections")
	man.addConfigInt("redis.max_open_conns", 0,
		"Redis maximum open connections, 0 means no limit")
	man.addConfigDuration("redis.conn_max_lifetime", 0,
		"Redis maximum amount of time a connection may be reused, 0 means no limit")
	man.addConfigDuration("redis.idle_timeout", 240*time.Second,
		"Redis maximum amount of time a connection may stay idle, 0 means no limit")

	// Server
	man.addConfigString("server.address", "0.0.0.0:8080",
		"mistri server address (host:port)")
	man.addConfigString("server.url_prefix", "",
		"URL prefix used on server and frontend endpoints")

	// App
	man.addConfigDuration("app.active_poll_interval", 1*time.Second,
		"Snapshot refresh interval for latency-sensitive subscriptions")
	man.addConfigDuration("app.admin_poll_interval", 10*time.Second,
		"Snapshot refresh interval for admin dashboard subscriptions")
	man.addConfigInt("app.cancellation_penalty", 50,
		"Amount debited from a worker's wallet on cancelling an accepted job")
	man.addConfigInt("app.otp_verify_burst", 5,
		"OTP verification attempts allowed per job per minute")

	// Worker
	man.addConfigDuration("worker.process_interval", 10*time.Second,
		"Interval between settlement outbox processing runs")

	// Logging
	man.addConfigBool("logging.debug", false,
		"Enable debug logging")
	man.addConfigBool("logging.json", false,
		"Log in JSON format")
	man.addConfigBool("logging.disable_banner", false,
		"Disable startup banner")
}

// LoadConfig will load the config variables into a fully initialized
// MistriConfig struct
func (man Manager) LoadConfig() MistriConfig {
	man.loadConfigFile()

	return MistriConfig{
		Mysql: MysqlConfig{
			Protocol:             man.getConfigString("mysql.protocol"),
			Address:              man.getConfigString("mysql.address"),
			Username:             man.getConfigString("mysql.username"),
			Password:             man.getConfigString("mysql.password"),
			Database:             man.getConfigString("mysql.database"),
			MaxOpenConns:         man.getConfigInt("mysql.max_open_conns"),
			MaxIdleConns:         man.getConfigInt("mysql.max_idle_conns"),
			ConnMaxLifetime:      man.getConfigInt("mysql.conn_max_lifetime"),
			ConnectRetryAttempts: man.getConfigInt("mysql.connect_retry_attempts"),
		},
		Redis: RedisConfig{
			Address:         man.getConfigString("redis.address"),
			Password:        man.getConfigString("redis.password"),
			Database:        man.getConfigInt("redis.database"),
			ConnectTimeout:  man.getConfigDuration("redis.connect_timeout"),
			KeepAlive:       man.getConfigDuration("redis.keep_alive"),
			MaxIdleConns:    man.getConfigInt("redis.max_idle_conns"),
			MaxOpenConns:    man.getConfigInt("redis.max_open_conns"),
			ConnMaxLifetime: man.getConfigDuration("redis.conn_max_lifetime"),
			IdleTimeout:     man.getConfigDuration("redis.idle_timeout"),
		},
		Server: ServerConfig{
			Address:   man.getConfigString("server.address"),
			URLPrefix: man.getConfigString("server.url_prefix"),
		},
		App: AppConfig{
			ActivePollInterval:  man.getConfigDuration("app.active_poll_interval"),
			AdminPollInterval:   man.getConfigDuration("app.admin_poll_interval"),
			CancellationPenalty: man.getConfigInt("app.cancellation_penalty"),
			OtpVerifyBurst:      man.getConfigInt("app.otp_verify_burst"),
		},
		Worker: WorkerConfig{
			ProcessInterval: man.getConfigDuration("worker.process_interval"),
		},
		Logging: LoggingConfig{
			Debug:         man.getConfigBool("logging.debug"),
			JSON:          man.getConfigBool("logging.json"),
			DisableBanner: man.getConfigBool("logging.disable_banner"),
		},
	}
}

// IsSet determines whether a given config key has been explicitly set by any
// of the configuration sources. If false, the default value is being used.
func (man Manager) IsSet(key string) bool {
	return man.viper.IsSet(key)
}

// envNameFromConfigKey converts a config key into the corresponding
// environment variable name
func envNameFromConfigKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.Replace(key, ".", "_", -1))
}

// flagNameFromConfigKey converts a config key into the corresponding flag name
func flagNameFromConfigKey(key string) string {
	return strings.Replace(key, ".", "_", -1)
}

// Manager manages the addition and retrieval of config values for mistri
// configs. It's only public API method is LoadConfig, which will return the
// populated MistriConfig struct.
type Manager struct {
	viper    *viper.Viper
	command  *cobra.Command
	defaults map[string]interface{}
}

// NewManager initializes a Manager wrapping the provided cobra
// command. All config flags will be attached to that command (and inherited by
// the subcommands). Typically this should be called just once, with the root
// command.
func NewManager(command *cobra.Command) Manager {
	man := Manager{
		viper:    viper.New(),
		command:  command,
		defaults: map[string]interface{}{},
	}
	man.addConfigs()
	return man
}

// addDefault will check for duplication, then add a default value to the
// defaults map
func (man Manager) addDefault(key string, defVal interface{}) {
	if _, exists := man.defaults[key]; exists {
		panic("Trying to add duplicate config for key " + key)
	}

	man.defaults[key] = defVal
}

func getFlagUsage(key string, usage string) string {
	return fmt.Sprintf("Env: %s\n\t\t%s", envNameFromConfigKey(key), usage)
}

// getInterfaceVal is a helper function used by the getConfig* functions to
// retrieve the config value as interface{}, which will then be cast to the
// appropriate type by the getConfig* function.
func (man Manager) getInterfaceVal(key string) interface{} {
	interfaceVal := man.viper.Get(key)
	if interfaceVal == nil {
		var ok bool
		interfaceVal, ok = man.defaults[key]
		if !ok {
			panic("Tried to look up default value for nonexistent config option: " + key)
		}
	}
	return interfaceVal
}

// addConfigString adds a string config to the config options
func (man Manager) addConfigString(key, defVal, usage string) {
	man.command.PersistentFlags().String(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.viper.BindPFlag(key, man.command.PersistentFlags().Lookup(flagNameFromConfigKey(key)))
	man.viper.BindEnv(key, envNameFromConfigKey(key))

	// Add default
	man.addDefault(key, defVal)
}

// getConfigString retrieves a string from the loaded config
func (man Manager) getConfigString(key string) string {
	interfaceVal := man.getInterfaceVal(key)
	stringVal, err := cast.ToStringE(interfaceVal)
	if err != nil {
		panic("Unable to cast to string for key " + key + ": " + err.Error())
	}

	return stringVal
}

// addConfigInt adds a int config to the config options
func (man Manager) addConfigInt(key string, defVal int, usage string) {
	man.command.PersistentFlags().Int(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.viper.BindPFlag(key, man.command.PersistentFlags().Lookup(flagNameFromConfigKey(key)))
	man.viper.BindEnv(key, envNameFromConfigKey(key))

	// Add default
	man.addDefault(key, defVal)
}

// getConfigInt retrieves a int from the loaded config
func (man Manager) getConfigInt(key string) int {
	interfaceVal := man.getInterfaceVal(key)
	intVal, err := cast.ToIntE(interfaceVal)
	if err != nil {
		panic("Unable to cast to int for key " + key + ": " + err.Error())
	}

	return intVal
}

// addConfigBool adds a bool config to the config options
func (man Manager) addConfigBool(key string, defVal bool, usage string) {
	man.command.PersistentFlags().Bool(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.viper.BindPFlag(key, man.command.PersistentFlags().Lookup(flagNameFromConfigKey(key)))
	man.viper.BindEnv(key, envNameFromConfigKey(key))

	// Add default
	man.addDefault(key, defVal)
}

// getConfigBool retrieves a bool from the loaded config
func (man Manager) getConfigBool(key string) bool {
	interfaceVal := man.getInterfaceVal(key)
	boolVal, err := cast.ToBoolE(interfaceVal)
	if err != nil {
		panic("Unable to cast to bool for key " + key + ": " + err.Error())
	}

	return boolVal
}

// addConfigDuration adds a duration config to the config options
func (man Manager) addConfigDuration(key string, defVal time.Duration, usage string) {
	man.command.PersistentFlags().Duration(flagNameFromConfigKey(key), defVal, getFlagUsage(key, usage))
	man.viper.BindPFlag(key, man.command.PersistentFlags().Lookup(flagNameFromConfigKey(key)))
	man.viper.BindEnv(key, envNameFromConfigKey(key))

	// Add default
	man.addDefault(key, defVal)
}

// getConfigDuration retrieves a duration from the loaded config
func (man Manager) getConfigDuration(key string) time.Duration {
	interfaceVal := man.getInterfaceVal(key)
	durationVal, err := cast.ToDurationE(interfaceVal)
	if err != nil {
		panic("Unable to cast to duration for key " + key + ": " + err.Error())
	}

	return durationVal
}

// loadConfigFile handles the loading of the config file.
func (man Manager) loadConfigFile() {
	man.viper.SetConfigType("yaml")

	configFile := man.command.PersistentFlags().Lookup("config").Value.String()

	if configFile == "" {
		// No config file set, only use configs from env
		// vars/flags/defaults
		return
	}

	man.viper.SetConfigFile(configFile)
	err := man.viper.ReadInConfig()
	if err != nil {
		fmt.Println("Error loading config file:", err)
		os.Exit(1)
	}

	fmt.Println("Using config file: ", man.viper.ConfigFileUsed())
}

// TestConfig returns a barebones configuration suitable for use in tests.
// Individual tests may want to override some of the values provided.
func TestConfig() MistriConfig {
	return MistriConfig{
		App: AppConfig{
			ActivePollInterval:  1 * time.Second,
			AdminPollInterval:   10 * time.Second,
			CancellationPenalty: 50,
			OtpVerifyBurst:      5,
		},
		Worker: WorkerConfig{
			ProcessInterval: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Debug:         true,
			DisableBanner: true,
		},
	}
}
