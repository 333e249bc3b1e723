// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Drive    DriveConfig
	Planning PlanningConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// DriveConfig locates the source documents. When LocalDir is set the
// folder IDs are read as directories below it instead of Drive folders.
type DriveConfig struct {
	CredentialsJSON   string
	LocalDir          string
	InventoryFolderID string
	SalesFolderID     string
	InventoryToken    string
	SalesToken        string
	ReportFolderID    string
	ReportFolderPath  string
}

type PlanningConfig struct {
	DefaultCoverage float64
	OutputDir       string
	// ParseWorkers bounds how many sales documents are parsed at once.
	ParseWorkers    int
	Support         SupportConfig
}

// SupportConfig holds the support-warehouse rule table. SpecialRules maps a
// warehouse name token to the branch whose general warehouse serves it; the
// order of SpecialRules is the order the tokens are checked in.
type SupportConfig struct {
	PrimaryBranchA         string
	PrimaryBranchB         string
	SpecialRules           []SpecialRule
	GeneralToken           string
	GeneralWarehouseFormat string
}

type SpecialRule struct {
	Token  string
	Branch string
}

type CacheConfig struct {
	Enabled             bool
	Backend             string
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	InventoryTTLSeconds int
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the connection string in URL form, as expected by the pgx
// stdlib driver.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type StorageConfig struct {
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("REPORT_OUTPUT_DIR"))

		instance = build()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_READ_TIMEOUT", 60)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 300)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("DRIVE_INVENTORY_FOLDER_ID", "")
	viper.SetDefault("DRIVE_MASTER_SALES_FOLDER_ID", "")
	viper.SetDefault("DRIVE_INVENTORY_TOKEN", "INVENTARIO_CRA")
	viper.SetDefault("DRIVE_SALES_TOKEN", "MASTER")
	viper.SetDefault("DRIVE_REPORT_FOLDER_ID", "")
	viper.SetDefault("DRIVE_REPORT_FOLDER_PATH", "")
	viper.SetDefault("DRIVE_LOCAL_DIR", "")

	viper.SetDefault("PLANNING_DEFAULT_COVERAGE", 1.5)
	viper.SetDefault("REPORT_OUTPUT_DIR", "./data/reports")
	viper.SetDefault("PLANNING_PARSE_WORKERS", 4)
	viper.SetDefault("SUPPORT_PRIMARY_BRANCH_A", "CULIACAN")
	viper.SetDefault("SUPPORT_PRIMARY_BRANCH_B", "MAZATLAN")
	viper.SetDefault("SUPPORT_SPECIAL_RULES", "CEDIS=CULIACAN,FORANEO=MAZATLAN")
	viper.SetDefault("SUPPORT_GENERAL_TOKEN", "GENERAL")
	viper.SetDefault("SUPPORT_GENERAL_WAREHOUSE_FORMAT", "GENERAL %s")

	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_BACKEND", "memory")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_INVENTORY_TTL_SECONDS", 3600)

	viper.SetDefault("DB_ENABLED", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "cra_planner")
	viper.SetDefault("DB_SSLMODE", "disable")

	viper.SetDefault("STORAGE_PROVIDER", "none")
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)
	viper.SetDefault("STORAGE_PREFIX", "reports")
}

func build() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Drive: DriveConfig{
			CredentialsJSON:   viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			LocalDir:          viper.GetString("DRIVE_LOCAL_DIR"),
			InventoryFolderID: viper.GetString("DRIVE_INVENTORY_FOLDER_ID"),
			SalesFolderID:     viper.GetString("DRIVE_MASTER_SALES_FOLDER_ID"),
			InventoryToken:    viper.GetString("DRIVE_INVENTORY_TOKEN"),
			SalesToken:        viper.GetString("DRIVE_SALES_TOKEN"),
			ReportFolderID:    viper.GetString("DRIVE_REPORT_FOLDER_ID"),
			ReportFolderPath:  viper.GetString("DRIVE_REPORT_FOLDER_PATH"),
		},
		Planning: PlanningConfig{
			DefaultCoverage: viper.GetFloat64("PLANNING_DEFAULT_COVERAGE"),
			OutputDir:       viper.GetString("REPORT_OUTPUT_DIR"),
			ParseWorkers:    viper.GetInt("PLANNING_PARSE_WORKERS"),
			Support: SupportConfig{
				PrimaryBranchA:         viper.GetString("SUPPORT_PRIMARY_BRANCH_A"),
				PrimaryBranchB:         viper.GetString("SUPPORT_PRIMARY_BRANCH_B"),
				SpecialRules:           ParseSpecialRules(viper.GetString("SUPPORT_SPECIAL_RULES")),
				GeneralToken:           viper.GetString("SUPPORT_GENERAL_TOKEN"),
				GeneralWarehouseFormat: viper.GetString("SUPPORT_GENERAL_WAREHOUSE_FORMAT"),
			},
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			Backend:             strings.ToLower(viper.GetString("CACHE_BACKEND")),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			InventoryTTLSeconds: viper.GetInt("CACHE_INVENTORY_TTL_SECONDS"),
		},
		Database: DatabaseConfig{
			Enabled:  viper.GetBool("DB_ENABLED"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Storage: StorageConfig{
			Provider:  strings.ToLower(viper.GetString("STORAGE_PROVIDER")),
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			Prefix:    viper.GetString("STORAGE_PREFIX"),
		},
	}
}

// ParseSpecialRules parses "TOKEN=BRANCH,TOKEN=BRANCH". Malformed pairs are
// skipped.
func ParseSpecialRules(raw string) []SpecialRule {
	var rules []SpecialRule
	for _, pair := range strings.Split(raw, ",") {
		token, branch, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		token = strings.ToUpper(strings.TrimSpace(token))
		branch = strings.ToUpper(strings.TrimSpace(branch))
		if token == "" || branch == "" {
			continue
		}
		rules = append(rules, SpecialRule{Token: token, Branch: branch})
	}
	return rules
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
