package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ListeningPortKey is the port where the callback server invoked by the hub listens on
	ListeningPortKey = "LISTENING_PORT"
	// DatadirKey is the local data directory to store the settlement journal
	DatadirKey = "DATADIR"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// MatcherAddressKey is the address of the matcher stamped on every settlement message
	MatcherAddressKey = "MATCHER_ADDRESS"
	// PrivateKeyKey is the hex encoded private key used to sign settlement messages
	PrivateKeyKey = "PRIVATE_KEY"
	// HubURLKey is the base url of the hub for registration and balance pushes
	HubURLKey = "HUB_URL"
	// HubBlockchainURLKey is the base url of the hub for trade relays, defaults to HUB_URL
	HubBlockchainURLKey = "HUB_BLOCKCHAIN_URL"
	// CallbackURLKey is the public base url of this broker
	CallbackURLKey = "CALLBACK_URL"
	// HubSecretKey is the optional shared secret used to sign and verify the
	// bearer tokens exchanged with the hub
	HubSecretKey = "HUB_SECRET"
	// HubRequestTimeoutKey is the timeout of every request to the hub
	HubRequestTimeoutKey = "HUB_REQUEST_TIMEOUT"
	// AssetsKey is the static asset table, a list of SYMBOL:0xaddress entries
	AssetsKey = "ASSETS"
	// BalancesFileKey is the path of the balance snapshot written by the exchange
	// connectors. Balances are not pushed to the hub if not set
	BalancesFileKey = "BALANCES_FILE"
	// BalanceIntervalKey is the interval between balance pushes
	BalanceIntervalKey = "BALANCE_INTERVAL"
	// BalanceRateLimitKey is the max number of balance pushes per second
	BalanceRateLimitKey = "BALANCE_RATE_LIMIT"

	DbLocation = "db"

	DBBadger   = "badger"
	DBInMemory = "inmemory"
)

var (
	vip *viper.Viper

	defaultDatadir = btcutil.AppDataDir("orion-broker", false)
	defaultAssets  = []string{
		"ETH:0x0000000000000000000000000000000000000000",
		"USDT:0xfc1cd13a7f126efd823e373c4086f69beb8611c2",
		"ORN:0xfc25454ac2db9f6ab36bc0b0b034b41061c00982",
	}
	supportedDBTypes = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("BROKER")
	vip.AutomaticEnv()

	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(ListeningPortKey, 9090)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(HubRequestTimeoutKey, 30*time.Second)
	vip.SetDefault(AssetsKey, defaultAssets)
	vip.SetDefault(BalanceIntervalKey, time.Minute)
	vip.SetDefault(BalanceRateLimitKey, 1)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetDbDir returns the directory of the settlement journal, empty when the
// journal is kept in memory.
func GetDbDir() string {
	if GetString(DBTypeKey) == DBInMemory {
		return ""
	}
	return filepath.Join(GetDatadir(), DbLocation)
}

// GetHubBlockchainURL returns the trade relay url, falling back to the hub url.
func GetHubBlockchainURL() string {
	if u := GetString(HubBlockchainURLKey); u != "" {
		return u
	}
	return GetString(HubURLKey)
}

// GetAssets returns the asset table entries. Entries set via env var can be
// separated by commas or spaces.
func GetAssets() []string {
	assets := make([]string, 0)
	for _, entry := range vip.GetStringSlice(AssetsKey) {
		assets = append(assets, strings.FieldsFunc(entry, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}
	return assets
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if _, ok := supportedDBTypes[GetString(DBTypeKey)]; !ok {
		return fmt.Errorf(
			"%s must be either %s or %s", DBTypeKey, DBBadger, DBInMemory,
		)
	}

	for _, key := range []string{MatcherAddressKey, PrivateKeyKey} {
		if GetString(key) == "" {
			return fmt.Errorf("missing %s", key)
		}
	}

	for _, key := range []string{HubURLKey, CallbackURLKey} {
		if err := validateURL(key, true); err != nil {
			return err
		}
	}
	if err := validateURL(HubBlockchainURLKey, false); err != nil {
		return err
	}

	if len(GetAssets()) <= 0 {
		return fmt.Errorf("%s must not be empty", AssetsKey)
	}

	if GetDuration(HubRequestTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be positive", HubRequestTimeoutKey)
	}
	if GetString(BalancesFileKey) != "" {
		if GetDuration(BalanceIntervalKey) <= 0 {
			return fmt.Errorf("%s must be positive", BalanceIntervalKey)
		}
		if GetFloat(BalanceRateLimitKey) <= 0 {
			return fmt.Errorf("%s must be positive", BalanceRateLimitKey)
		}
	}

	return nil
}

func validateURL(key string, required bool) error {
	value := GetString(key)
	if value == "" {
		if required {
			return fmt.Errorf("missing %s", key)
		}
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be a valid http(s) url, got %q", key, value)
	}
	return nil
}

func initDatadir() error {
	if GetString(DBTypeKey) == DBInMemory {
		return nil
	}
	return makeDirectoryIfNotExists(GetDbDir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
