package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type analyzeCommand struct {
	PartnerID     string `long:"partner-id" env:"PARTNER_ID" required:"true" description:"Partner identifier"`
	Source        string `long:"source" env:"FEED_SOURCE" required:"true" description:"Feed location (s3://, gs://, file:// or path)"`
	Destination   string `long:"destination" env:"REPORT_DESTINATION" required:"true" description:"Report location or prefix"`
	DistinguishID string `long:"distinguish-id" env:"DISTINGUISH_ID" required:"true" description:"Run distinguishing identifier"`
}

type serveCommand struct{}

type rawCfg struct {
	// Job store and HTTP API
	DBPath            string `long:"db-path" env:"DB_PATH" default:"./data/jobs.db" description:"SQLite job store path"`
	Port              string `long:"port" env:"PORT" default:"3000" description:"HTTP server port"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of concurrent analysis workers"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	CallbackURL       string `long:"callback-url" env:"CALLBACK_URL" description:"Default callback URL for job results"`

	// Analysis runs
	LogsDir        string `long:"logs-dir" env:"LOGS_DIR" default:"./logs" description:"Directory for per-run log files"`
	LogTimeout     int    `long:"log-timeout" env:"LOG_TIMEOUT" default:"3600" description:"Maximum run time in seconds"`
	ProfilesDir    string `long:"profiles-dir" env:"PROFILES_DIR" default:"./profiles" description:"Directory containing partner marker profiles"`
	QueueSize      int    `long:"queue-size" env:"QUEUE_SIZE" default:"256" description:"Records buffered between splitter and aggregator"`
	MaxRecordBytes int    `long:"max-record-bytes" env:"MAX_RECORD_BYTES" default:"16777216" description:"Largest accepted record in bytes"`
	SpoolDir       string `long:"spool-dir" env:"SPOOL_DIR" description:"Download feeds to this directory before analysis (optional)"`

	// Blob storage
	S3Endpoint  string `long:"s3-endpoint" env:"S3_ENDPOINT" default:"s3.amazonaws.com" description:"S3 or S3-compatible endpoint"`
	S3AccessKey string `long:"s3-access-key" env:"AWS_ACCESS_KEY_ID" description:"S3 access key (falls back to the AWS credential chain)"`
	S3SecretKey string `long:"s3-secret-key" env:"AWS_SECRET_ACCESS_KEY" description:"S3 secret key"`
	S3Region    string `long:"s3-region" env:"AWS_REGION" default:"us-east-1" description:"S3 region"`
	S3Insecure  bool   `long:"s3-insecure" env:"S3_INSECURE" description:"Use plain HTTP for the S3 endpoint"`

	PushgatewayURL string `long:"pushgateway-url" env:"PUSHGATEWAY_URL" description:"Prometheus Pushgateway for analyze runs (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Analyze analyzeCommand `command:"analyze" description:"Analyze one feed and upload the report"`
	Serve   serveCommand   `command:"serve" description:"Run the HTTP API and job scheduler (default)"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs reads .env (if present), the environment and args. It returns
// nil, nil when help was requested.
func LoadArgs(args []string) (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	command := CommandServe
	if parser.Active != nil {
		command = parser.Active.Name
	}

	cfg := &Cfg{
		Command:           command,
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		CallbackURL:       raw.CallbackURL,
		LogsDir:           raw.LogsDir,
		LogTimeout:        raw.LogTimeout,
		ProfilesDir:       raw.ProfilesDir,
		QueueSize:         raw.QueueSize,
		MaxRecordBytes:    raw.MaxRecordBytes,
		SpoolDir:          raw.SpoolDir,
		S3Endpoint:        raw.S3Endpoint,
		S3AccessKey:       raw.S3AccessKey,
		S3SecretKey:       raw.S3SecretKey,
		S3Region:          raw.S3Region,
		S3UseSSL:          !raw.S3Insecure,
		PushgatewayURL:    raw.PushgatewayURL,
		PartnerID:         raw.Analyze.PartnerID,
		Source:            raw.Analyze.Source,
		Destination:       raw.Analyze.Destination,
		DistinguishID:     raw.Analyze.DistinguishID,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	positiveFields := map[string]int{
		"worker count":       cfg.WorkerCount,
		"scheduler interval": cfg.SchedulerInterval,
		"log timeout":        cfg.LogTimeout,
		"queue size":         cfg.QueueSize,
		"max record bytes":   cfg.MaxRecordBytes,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
