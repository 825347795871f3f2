package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	ZooKeeper ZooKeeperConfig
	Kafka     KafkaConfig
	Stock     StockConfig
	Order     OrderConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de almacenamiento.
// Driver "memory" ignora el resto de campos (solo desarrollo).
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	Driver      string // postgres | memory
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	LockTimeout time.Duration // SET LOCAL lock_timeout en cada transacción
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig servidor Redis del proveedor de bloqueo.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ZooKeeperConfig ensamble ZooKeeper del proveedor de bloqueo alternativo.
type ZooKeeperConfig struct {
	Servers        []string
	SessionTimeout time.Duration
	BasePath       string
}

// KafkaConfig publicación de eventos de estado. Sin brokers no se publica.
type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

// Enabled indica si hay brokers configurados.
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// StockConfig parámetros del coordinador de stock.
type StockConfig struct {
	LockProvider    string // none | redis | zookeeper
	LockTTL         time.Duration
	LockWaitTimeout time.Duration
	TxTimeout       time.Duration
	Seed            string // "sku:stock,..." filas iniciales (driver memory y cmd/migrate)
}

// OrderConfig parámetros del ciclo de vida de órdenes.
type OrderConfig struct {
	PaymentWindow    time.Duration
	BatchConcurrency int
	ExpireBatchSize  int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, STOCK_LOCK_PROVIDER, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "stock-engine"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Driver:      getString(v, "DB_DRIVER", "postgres"),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "stock_engine"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
			LockTimeout: getDuration(v, "DB_LOCK_TIMEOUT", 5*time.Second),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "stock-engine"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		ZooKeeper: ZooKeeperConfig{
			Servers:        getList(v, "ZK_SERVERS"),
			SessionTimeout: getDuration(v, "ZK_SESSION_TIMEOUT", 10*time.Second),
			BasePath:       getString(v, "ZK_BASE_PATH", "/stock-engine/locks"),
		},
		Kafka: KafkaConfig{
			Brokers:     getList(v, "KAFKA_BROKERS"),
			StatusTopic: getString(v, "KAFKA_STATUS_TOPIC", "order-status-changed"),
		},
		Stock: StockConfig{
			LockProvider:    getString(v, "STOCK_LOCK_PROVIDER", "none"),
			LockTTL:         getDuration(v, "STOCK_LOCK_TTL", 30*time.Second),
			LockWaitTimeout: getDuration(v, "STOCK_LOCK_WAIT_TIMEOUT", 2*time.Second),
			TxTimeout:       getDuration(v, "STOCK_TX_TIMEOUT", 10*time.Second),
			Seed:            getString(v, "STOCK_SEED", ""),
		},
		Order: OrderConfig{
			PaymentWindow:    getDuration(v, "ORDER_PAYMENT_WINDOW", 24*time.Hour),
			BatchConcurrency: getInt(v, "ORDER_BATCH_CONCURRENCY", 8),
			ExpireBatchSize:  getInt(v, "ORDER_EXPIRE_BATCH_SIZE", 200),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER inválido: %q", c.DB.Driver)
	}
	switch c.Stock.LockProvider {
	case "none", "redis":
	case "zookeeper":
		if len(c.ZooKeeper.Servers) == 0 {
			return fmt.Errorf("STOCK_LOCK_PROVIDER=zookeeper requiere ZK_SERVERS")
		}
	default:
		return fmt.Errorf("STOCK_LOCK_PROVIDER inválido: %q", c.Stock.LockProvider)
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

// getDuration acepta "30s", "5m" o un entero en segundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// getList lista separada por comas ("a:1,b:2").
func getList(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	var out []string
	for _, s := range strings.Split(v.GetString(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
