package providers

import (
	"fmt"
	"path/filepath"
	"rad/internal/structures"
	"strings"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	viper.BindEnv("logger.level", "RAD_LOG_LEVEL")
	viper.BindEnv("mongo.uri", "RAD_MONGO_URI")
	viper.BindEnv("mongo.database", "RAD_MONGO_DATABASE")
	viper.BindEnv("queue.flushInterval", "RAD_FLUSH_INTERVAL")
	viper.BindEnv("cache.enabled", "RAD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "RAD_CACHE_SIZE")
	viper.BindEnv("spam.enabled", "RAD_SPAM_ENABLED")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	conf.ApplyDefaults()

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "RewardAdmissionDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
