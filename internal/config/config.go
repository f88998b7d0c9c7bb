package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antonahmetgaliev/skf/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	DBURL                   string
	DBDisablePreparedBinary bool

	CORSAllowedOrigins []string
	AdminToken         string

	StandingsCacheTTL time.Duration
	MetadataCacheTTL  time.Duration

	SimGridBaseURL              string
	SimGridAPIKey               string
	SimGridTimeout              time.Duration
	SimGridMaxRetries           int
	SimGridCircuitEnabled       bool
	SimGridCircuitFailureCount  int
	SimGridCircuitOpenTimeout   time.Duration
	SimGridCircuitHalfOpenMax   int
	SimGridHTMLFallbackDisabled bool

	RefreshChampionshipIDs []int64
	RefreshInterval        time.Duration
	RefreshMaxWorkers      int

	BWPPointValidity time.Duration

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled bool
	UptraceDSN     string

	PyroscopeEnabled       bool
	PyroscopeServerAddress string
	PyroscopeAppName       string
	PyroscopeAuthToken     string
	PyroscopeUploadRate    time.Duration

	LogLevel  logging.Level
	LogFormat string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	standingsCacheTTL, err := time.ParseDuration(getEnv("STANDINGS_CACHE_TTL", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse STANDINGS_CACHE_TTL: %w", err)
	}
	if standingsCacheTTL <= 0 {
		return Config{}, fmt.Errorf("STANDINGS_CACHE_TTL must be > 0")
	}
	metadataCacheTTL, err := time.ParseDuration(getEnv("METADATA_CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse METADATA_CACHE_TTL: %w", err)
	}
	if metadataCacheTTL <= 0 {
		return Config{}, fmt.Errorf("METADATA_CACHE_TTL must be > 0")
	}

	simGridTimeout, err := time.ParseDuration(getEnv("SIMGRID_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_TIMEOUT: %w", err)
	}
	if simGridTimeout <= 0 {
		return Config{}, fmt.Errorf("SIMGRID_TIMEOUT must be > 0")
	}
	simGridMaxRetries, err := getEnvAsInt("SIMGRID_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_MAX_RETRIES: %w", err)
	}
	if simGridMaxRetries < 0 {
		return Config{}, fmt.Errorf("SIMGRID_MAX_RETRIES must be >= 0")
	}
	simGridCircuitEnabled, err := strconv.ParseBool(getEnv("SIMGRID_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_CIRCUIT_ENABLED: %w", err)
	}
	simGridCircuitFailureCount, err := getEnvAsInt("SIMGRID_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if simGridCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SIMGRID_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	simGridCircuitOpenTimeout, err := time.ParseDuration(getEnv("SIMGRID_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if simGridCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SIMGRID_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	simGridCircuitHalfOpenMax, err := getEnvAsInt("SIMGRID_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if simGridCircuitHalfOpenMax < 1 {
		return Config{}, fmt.Errorf("SIMGRID_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	simGridHTMLFallbackDisabled, err := strconv.ParseBool(getEnv("SIMGRID_HTML_FALLBACK_DISABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SIMGRID_HTML_FALLBACK_DISABLED: %w", err)
	}

	refreshChampionshipIDs, err := parseIDList(getEnv("REFRESH_CHAMPIONSHIP_IDS", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_CHAMPIONSHIP_IDS: %w", err)
	}
	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "55s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval <= 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be > 0")
	}
	refreshMaxWorkers, err := getEnvAsInt("REFRESH_MAX_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_MAX_WORKERS: %w", err)
	}
	if refreshMaxWorkers < 1 {
		return Config{}, fmt.Errorf("REFRESH_MAX_WORKERS must be >= 1")
	}

	bwpPointValidity, err := time.ParseDuration(getEnv("BWP_POINT_VALIDITY", "8760h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BWP_POINT_VALIDITY: %w", err)
	}
	if bwpPointValidity <= 0 {
		return Config{}, fmt.Errorf("BWP_POINT_VALIDITY must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY_RESULT", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
	}

	logFormat := strings.ToLower(strings.TrimSpace(getEnv("APP_LOG_FORMAT", "json")))
	switch logFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("invalid APP_LOG_FORMAT %q: valid values are json, console", logFormat)
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "skf-standings-api"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:       getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,

		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: dbDisablePreparedBinary,

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		AdminToken:         strings.TrimSpace(getEnv("ADMIN_TOKEN", "")),

		StandingsCacheTTL: standingsCacheTTL,
		MetadataCacheTTL:  metadataCacheTTL,

		SimGridBaseURL:              strings.TrimSpace(getEnv("SIMGRID_BASE_URL", "https://www.thesimgrid.com")),
		SimGridAPIKey:               strings.TrimSpace(getEnv("SIMGRID_API_KEY", "")),
		SimGridTimeout:              simGridTimeout,
		SimGridMaxRetries:           simGridMaxRetries,
		SimGridCircuitEnabled:       simGridCircuitEnabled,
		SimGridCircuitFailureCount:  simGridCircuitFailureCount,
		SimGridCircuitOpenTimeout:   simGridCircuitOpenTimeout,
		SimGridCircuitHalfOpenMax:   simGridCircuitHalfOpenMax,
		SimGridHTMLFallbackDisabled: simGridHTMLFallbackDisabled,

		RefreshChampionshipIDs: refreshChampionshipIDs,
		RefreshInterval:        refreshInterval,
		RefreshMaxWorkers:      refreshMaxWorkers,

		BWPPointValidity: bwpPointValidity,

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,

		PyroscopeEnabled:       pyroscopeEnabled,
		PyroscopeServerAddress: pyroscopeServerAddress,
		PyroscopeAuthToken:     strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeUploadRate:    pyroscopeUploadRate,

		LogLevel:  parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),
		LogFormat: logFormat,
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseIDList(raw string) ([]int64, error) {
	out := make([]int64, 0)
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		value, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid championship id %q: %w", item, err)
		}
		if value <= 0 {
			return nil, fmt.Errorf("championship id must be > 0, got %q", item)
		}
		out = append(out, value)
	}
	return out, nil
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
